package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/trainer"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// TrainHandler handles async training runs.
type TrainHandler struct {
	config     *config.Config
	engine     vision.Engine
	jobManager *JobManager
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(cfg *config.Config, engine vision.Engine, jm *JobManager) *TrainHandler {
	return &TrainHandler{
		config:     cfg,
		engine:     engine,
		jobManager: jm,
	}
}

// Start kicks off a training run over the enrollment dataset. Only one run
// may be in flight at a time; the model artifacts are replaced on success.
func (h *TrainHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.jobManager.Running() {
		respondError(w, http.StatusConflict, "a training job is already running")
		return
	}

	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID)

	go h.runTraining(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}

// runTraining executes the training job in the background.
func (h *TrainHandler) runTraining(job *TrainJob) {
	job.setRunning()
	log.Printf("Training job %s started", job.ID)

	t := trainer.New(h.engine, trainer.Options{
		ModelDir:           h.config.Model.Dir,
		Detect:             h.config.Detect.Options(),
		WholeImageFallback: true,
	})

	result, err := t.Train(context.Background(), h.config.Model.DatasetDir)
	if err != nil {
		log.Printf("Training job %s failed: %v", job.ID, err)
		job.setFailed(err.Error())
		return
	}

	log.Printf("Training job %s completed: %d people, %d samples", job.ID, result.People, result.Samples)
	job.setCompleted(&TrainJobResult{
		People:        result.People,
		Samples:       result.Samples,
		SkippedImages: result.SkippedImages,
		FallbackUsed:  result.FallbackUsed,
	})
}

// Status returns the state of a training job.
func (h *TrainHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}
