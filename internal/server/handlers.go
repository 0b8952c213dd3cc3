package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/nao1215/deepscan/internal/media"
	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/pipeline"
	"github.com/nao1215/deepscan/internal/provider"
)

// detectRequest is the body of every image route.
type detectRequest struct {
	// Media is a data URI or a bare base64 string.
	Media string `json:"media"`

	// Name optionally labels the image in history.
	Name string `json:"name,omitempty"`

	// Providers limits /api/analyze to the named vendors.
	Providers []string `json:"providers,omitempty"`
}

// analyzeResponse is the body returned by /api/analyze.
type analyzeResponse struct {
	ID          string                   `json:"id"`
	Verdict     model.Verdict            `json:"verdict"`
	Confidence  float64                  `json:"confidence"`
	Results     map[string]*model.Result `json:"results"`
	Errors      map[string]string        `json:"errors,omitempty"`
	Metadata    *model.ImageMetadata     `json:"metadata,omitempty"`
	Description string                   `json:"description,omitempty"`
}

type describeResponse struct {
	Description string `json:"description"`
}

// readImage decodes the request body into an image. The body is bounded by
// the decoder limit plus base64 and JSON overhead.
func (s *Server) readImage(w http.ResponseWriter, r *http.Request) (*media.Image, *detectRequest, error) {
	limit := s.decoder.MaxSize()/3*4 + 64*1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		if errors.Is(err, io.EOF) {
			return nil, nil, media.ErrNoMedia
		}
		return nil, nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}

	img, err := s.decoder.Decode(req.Media)
	if err != nil {
		return nil, nil, err
	}
	img.Name = req.Name
	return img, &req, nil
}

// errInvalidJSON marks a request body that is not JSON.
var errInvalidJSON = errors.New("invalid JSON body")

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if errors.Is(err, errInvalidJSON) {
		status, msg = http.StatusBadRequest, msgInvalidJSON
	}

	level := s.logger.Warn
	if status >= http.StatusInternalServerError {
		level = s.logger.Error
	}
	level("request failed",
		"request_id", RequestIDFrom(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	respondError(w, msg, status)
}

func source(r *http.Request, req *detectRequest) string {
	if req.Name != "" {
		return req.Name
	}
	return "api:" + r.URL.Path
}

// detectWith runs one provider and writes its normalized result.
func (s *Server) detectWith(w http.ResponseWriter, r *http.Request, name string) {
	img, req, err := s.readImage(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, _, err := s.analyzer.Detect(r.Context(), img, source(r, req), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, result, http.StatusOK)
}

// handleDetect handles POST /api/detect (Reality Defender).
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	s.detectWith(w, r, provider.NameRealityDefender)
}

// handleVerify handles POST /api/verify (Sightengine).
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.detectWith(w, r, provider.NameSightengine)
}

// handleAnalyze handles POST /api/analyze. Provider failures are reported
// per provider; the request fails only when every provider failed.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	img, req, err := s.readImage(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	a, err := s.analyzer.Analyze(r.Context(), img, pipeline.AnalyzeRequest{
		Source:    source(r, req),
		Providers: req.Providers,
		Describe:  s.describe,
	})
	if err != nil && a == nil {
		s.fail(w, r, err)
		return
	}

	resp := analyzeResponse{
		ID:          a.ID,
		Verdict:     a.Verdict(),
		Confidence:  a.Confidence(),
		Results:     a.Results,
		Errors:      a.Errors,
		Metadata:    a.Metadata,
		Description: a.Description,
	}
	if resp.Results == nil {
		resp.Results = map[string]*model.Result{}
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
		s.logger.Error("analysis failed",
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
			"provider_errors", len(a.Errors),
		)
	}
	respondJSON(w, resp, status)
}

// handleDescribe handles POST /api/describe.
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	img, _, err := s.readImage(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	text, err := s.analyzer.Describe(r.Context(), img)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, describeResponse{Description: text}, http.StatusOK)
}

// handleHistory handles GET /api/history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, msgHistoryOff, http.StatusNotFound)
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, msgInvalidLimit, http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	h, err := s.history.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, h, http.StatusOK)
}

// handleHistoryEntry handles GET /api/history/{id}.
func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, msgHistoryOff, http.StatusNotFound)
		return
	}

	a, err := s.history.GetAnalysisByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, a, http.StatusOK)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
