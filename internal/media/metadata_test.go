package media

import (
	"bytes"
	"encoding/binary"
	"testing"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// jpegWithEXIF builds a minimal JPEG whose APP1 segment holds IFD0 tags.
func jpegWithEXIF(t *testing.T, tags map[string]string) []byte {
	t.Helper()

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		t.Fatalf("failed to create IFD mapping: %v", err)
	}
	ib := exif.NewIfdBuilder(im, exif.NewTagIndex(), exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	for name, value := range tags {
		if err := ib.AddStandardWithName(name, value); err != nil {
			t.Fatalf("failed to add tag %s: %v", name, err)
		}
	}
	raw, err := exif.NewIfdByteEncoder().EncodeToExif(ib)
	if err != nil {
		t.Fatalf("failed to encode EXIF: %v", err)
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8, 0xff, 0xe1})
	payload := append([]byte("Exif\x00\x00"), raw...)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write([]byte{0xff, 0xd9})
	return buf.Bytes()
}

// TestExtractMetadata_NoEXIF tests images without EXIF data.
func TestExtractMetadata_NoEXIF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		img  *Image
	}{
		{name: "nil image", img: nil},
		{name: "empty data", img: &Image{}},
		{name: "png without exif", img: &Image{Data: pngBytes, MIMEType: "image/png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			meta := ExtractMetadata(tt.img)
			if meta == nil {
				t.Fatal("expected non-nil metadata")
			}
			if meta.HasEXIF() {
				t.Errorf("expected no EXIF, got %v", meta.Tags)
			}
			if meta.EditingSoftware {
				t.Error("expected EditingSoftware false")
			}
		})
	}
}

// TestMatchGenerator tests detection of editors and generators.
func TestMatchGenerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		software string
		want     string
	}{
		{"Adobe Photoshop 25.0 (Windows)", "Adobe Photoshop"},
		{"GIMP 2.10.34", "GIMP"},
		{"Stable Diffusion XL", "Stable Diffusion"},
		{"Midjourney v6", "Midjourney"},
		{"Made with DALL-E 3", "DALL-E"},
		{"Adobe Firefly", "Adobe Firefly"},
		{"iOS 17.1", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.software, func(t *testing.T) {
			t.Parallel()
			if got := MatchGenerator(tt.software); got != tt.want {
				t.Errorf("MatchGenerator(%q) = %q, want %q", tt.software, got, tt.want)
			}
		})
	}
}

// TestExtractMetadata_EXIF tests camera and software tags from a JPEG.
func TestExtractMetadata_EXIF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		tags          map[string]string
		wantSoftware  string
		wantEditing   bool
		wantGenerator string
	}{
		{
			name: "edited in photoshop",
			tags: map[string]string{
				"Make":     "Canon",
				"Model":    "EOS R5",
				"Software": "Adobe Photoshop 25.0",
				"DateTime": "2024:05:01 10:20:30",
			},
			wantSoftware:  "Adobe Photoshop 25.0",
			wantEditing:   true,
			wantGenerator: "Adobe Photoshop",
		},
		{
			name: "camera firmware",
			tags: map[string]string{
				"Make":     "Canon",
				"Model":    "EOS R5",
				"Software": "Firmware Version 1.8.1",
				"DateTime": "2024:05:01 10:20:30",
			},
			wantSoftware: "Firmware Version 1.8.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			img := &Image{Data: jpegWithEXIF(t, tt.tags), MIMEType: "image/jpeg"}
			meta := ExtractMetadata(img)

			if !meta.HasEXIF() {
				t.Fatal("expected EXIF tags")
			}
			if meta.CameraMake != "Canon" || meta.CameraModel != "EOS R5" {
				t.Errorf("unexpected camera %q %q", meta.CameraMake, meta.CameraModel)
			}
			if meta.Software != tt.wantSoftware {
				t.Errorf("expected software %q, got %q", tt.wantSoftware, meta.Software)
			}
			if meta.DateTaken != "2024:05:01 10:20:30" {
				t.Errorf("unexpected date %q", meta.DateTaken)
			}
			if meta.HasGPS {
				t.Error("expected no GPS")
			}
			if meta.EditingSoftware != tt.wantEditing {
				t.Errorf("expected EditingSoftware %v, got %v", tt.wantEditing, meta.EditingSoftware)
			}
			if meta.Generator != tt.wantGenerator {
				t.Errorf("expected generator %q, got %q", tt.wantGenerator, meta.Generator)
			}
		})
	}
}
