package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// maxUploadSize limits recognize uploads to 20 MB.
const maxUploadSize = 20 << 20

// RecognizeHandler handles recognition uploads.
type RecognizeHandler struct {
	config  *config.Config
	engine  vision.Engine
	store   ledger.Store
	capture pipeline.Capturer
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(cfg *config.Config, engine vision.Engine, store ledger.Store, capture pipeline.Capturer) *RecognizeHandler {
	return &RecognizeHandler{
		config:  cfg,
		engine:  engine,
		store:   store,
		capture: capture,
	}
}

// Recognize classifies faces in an uploaded image and marks attendance for
// known ones. The recognizer is loaded per request so a finished training run
// is picked up without a restart.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	img, err := vision.DecodeGray(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to decode image")
		return
	}

	rec, err := recognizer.Load(h.engine, h.config.Model.Dir, h.config.Recognize.Threshold)
	if errors.Is(err, registry.ErrNoModel) || errors.Is(err, registry.ErrNoLabels) {
		respondError(w, http.StatusServiceUnavailable, "no trained model available, run training first")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load model: %v", err))
		return
	}

	pipe := pipeline.New(rec, h.store, h.capture, h.config.Detect.Options())
	report, err := pipe.Process(r.Context(), img)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to process image: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":       ledger.Today(),
		"detections": report.Detections,
		"marks":      report.Marks,
		"captured":   report.Captured,
		"no_faces":   report.NoFaces,
	})
}
