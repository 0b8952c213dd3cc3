package media

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/deepscan/internal/model"
)

// generators maps lowercase substrings of the EXIF Software tag to a display
// name. Editors are listed alongside generative tools because both mean the
// pixels did not come straight from a camera.
var generators = []struct {
	match string
	name  string
}{
	{"stable diffusion", "Stable Diffusion"},
	{"midjourney", "Midjourney"},
	{"dall-e", "DALL-E"},
	{"dall·e", "DALL-E"},
	{"firefly", "Adobe Firefly"},
	{"imagen", "Imagen"},
	{"novelai", "NovelAI"},
	{"comfyui", "ComfyUI"},
	{"photoshop", "Adobe Photoshop"},
	{"lightroom", "Adobe Lightroom"},
	{"gimp", "GIMP"},
	{"affinity", "Affinity Photo"},
	{"pixelmator", "Pixelmator"},
	{"faceapp", "FaceApp"},
	{"snapseed", "Snapseed"},
	{"canva", "Canva"},
}

// ExtractMetadata reads EXIF tags from the image.
// Images without EXIF (most PNGs, screenshots, stripped uploads) yield an
// empty, non-nil ImageMetadata.
func ExtractMetadata(img *Image) *model.ImageMetadata {
	meta := &model.ImageMetadata{}
	if img == nil || len(img.Data) == 0 {
		return meta
	}

	rawExif, err := exif.SearchAndExtractExif(img.Data)
	if err != nil || rawExif == nil {
		return meta
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return meta
	}

	meta.Tags = make(map[string]string, len(entries))
	for _, entry := range entries {
		value := strings.TrimSpace(entry.Formatted)
		if value == "" {
			continue
		}
		// IFD0 comes first; keep it when a thumbnail IFD repeats a tag.
		if _, ok := meta.Tags[entry.TagName]; !ok {
			meta.Tags[entry.TagName] = value
		}

		switch entry.TagName {
		case "Make":
			meta.CameraMake = value
		case "Model":
			meta.CameraModel = value
		case "Software", "ProcessingSoftware":
			if meta.Software == "" {
				meta.Software = value
			}
		case "DateTimeOriginal":
			meta.DateTaken = value
		case "DateTime":
			if meta.DateTaken == "" {
				meta.DateTaken = value
			}
		case "GPSLatitude", "GPSLongitude":
			meta.HasGPS = true
		}
	}

	if name := MatchGenerator(meta.Software); name != "" {
		meta.EditingSoftware = true
		meta.Generator = name
	}
	return meta
}

// MatchGenerator returns the known editor or generator named by software,
// or "" when none matches.
func MatchGenerator(software string) string {
	s := strings.ToLower(software)
	if s == "" {
		return ""
	}
	for _, g := range generators {
		if strings.Contains(s, g.match) {
			return g.name
		}
	}
	return ""
}
