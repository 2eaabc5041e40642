package api

import (
	"net/http"
	"time"

	"github.com/wtthornton/homeiq-core/internal/audit"
	"github.com/wtthornton/homeiq-core/internal/infrastructure/influxdb"
	"github.com/wtthornton/homeiq-core/internal/infrastructure/mqtt"
	"github.com/wtthornton/homeiq-core/internal/normalize"
	"github.com/wtthornton/homeiq-core/internal/schema"
	"github.com/wtthornton/homeiq-core/internal/validate"
)

// validateRequest is the body for POST /api/v1/validate.
type validateRequest struct {
	DocumentText     string `json:"document_text"`
	Normalize        *bool  `json:"normalize,omitempty"`
	ValidateEntities bool   `json:"validate_entities"`
	ValidateServices bool   `json:"validate_services"`
	Mode             string `json:"mode,omitempty"`
}

// validateResponse wraps the pipeline result with request-scoped metadata.
type validateResponse struct {
	*validate.Result
	DocumentHash string `json:"document_hash"`
	HistoryID    string `json:"history_id,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// handleValidate runs the full validation pipeline on a document.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DocumentText == "" {
		writeBadRequest(w, "document_text is required")
		return
	}

	opts := validate.Options{
		Normalize:        s.valCfg.NormalizeDefault,
		ValidateEntities: req.ValidateEntities,
		ValidateServices: req.ValidateServices,
		Mode:             validate.ParseMode(s.valCfg.DefaultMode),
	}
	if req.Normalize != nil {
		opts.Normalize = *req.Normalize
	}
	if req.Mode != "" {
		opts.Mode = validate.ParseMode(req.Mode)
	}

	start := time.Now()
	result := s.pipe.Validate(r.Context(), req.DocumentText, opts)
	elapsed := time.Since(start)

	hash := audit.HashDocument(req.DocumentText)
	resp := validateResponse{
		Result:       result,
		DocumentHash: hash,
		DurationMS:   elapsed.Milliseconds(),
	}

	if s.history != nil {
		rec := &audit.Record{
			DocumentHash: hash,
			Valid:        result.Valid,
			Score:        result.Score,
			ErrorCount:   len(result.Errors),
			WarningCount: len(result.Warnings),
			FixCount:     len(result.FixesApplied),
			Mode:         string(opts.Mode),
			Summary:      result.Summary,
			Duration:     elapsed,
		}
		if err := s.history.Create(r.Context(), rec); err != nil {
			s.logger.Error("failed to record validation history", "error", err)
		} else {
			resp.HistoryID = rec.ID
		}
	}

	s.announceValidation(hash, string(opts.Mode), result, elapsed)

	writeJSON(w, http.StatusOK, resp)
}

// announceValidation fans a completed validation out to the WebSocket hub,
// MQTT, and the metrics store. All three are best-effort.
func (s *Server) announceValidation(hash, mode string, result *validate.Result, elapsed time.Duration) {
	event := map[string]any{
		"document_hash": hash,
		"valid":         result.Valid,
		"score":         result.Score,
		"summary":       result.Summary,
	}

	if s.hub != nil {
		s.hub.Broadcast("validation.completed", event)
	}

	if s.mqtt != nil {
		err := s.mqtt.PublishValidation(mqtt.ValidationEvent{
			DocumentHash: hash,
			Valid:        result.Valid,
			Score:        int(result.Score),
			ErrorCount:   len(result.Errors),
			WarningCount: len(result.Warnings),
			Mode:         mode,
			Timestamp:    time.Now().UTC(),
		})
		if err != nil {
			s.logger.Warn("failed to publish validation event", "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.WriteValidation(influxdb.ValidationPoint{
			Mode:         mode,
			Valid:        result.Valid,
			Score:        int(result.Score),
			ErrorCount:   len(result.Errors),
			WarningCount: len(result.Warnings),
			FixCount:     len(result.FixesApplied),
			Duration:     elapsed,
		})
	}
}

// normalizeRequest is the body for POST /api/v1/normalize.
type normalizeRequest struct {
	DocumentText string `json:"document_text"`
}

// normalizeResponse is the result of a standalone normalization pass.
type normalizeResponse struct {
	NormalizedText string   `json:"normalized_text"`
	FixesApplied   []string `json:"fixes_applied"`
}

// handleNormalize runs the normalizer alone, without validation.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DocumentText == "" {
		writeBadRequest(w, "document_text is required")
		return
	}

	fixed, fixes := normalize.Document(req.DocumentText)
	if fixes == nil {
		fixes = []string{}
	}

	writeJSON(w, http.StatusOK, normalizeResponse{
		NormalizedText: fixed,
		FixesApplied:   fixes,
	})
}

// renderResponse is the result of rendering a canonical automation.
type renderResponse struct {
	RenderedText string `json:"rendered_text"`
}

// handleRender renders a canonical automation to deterministic YAML.
// This exposes the renderer independently of the pipeline so callers
// can round-trip their own typed specs.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var spec schema.AutomationSpec
	if !decodeBody(w, r, &spec) {
		return
	}

	if err := spec.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeUnrenderable, err.Error())
		return
	}

	text, err := schema.Render(&spec)
	if err != nil {
		s.logger.Error("render failed", "error", err)
		writeInternalError(w, "failed to render automation")
		return
	}

	writeJSON(w, http.StatusOK, renderResponse{RenderedText: text})
}
