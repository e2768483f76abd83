package handlers

import (
	"sync"
	"time"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// TrainJob represents an async training run.
type TrainJob struct {
	ID          string
	Status      JobStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *TrainJobResult

	mu sync.RWMutex
}

// TrainJobView is a point-in-time copy of a job, safe to serialize while
// the run keeps mutating the job.
type TrainJobView struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *TrainJobResult `json:"result,omitempty"`
}

// Snapshot copies the job state under the read lock.
func (j *TrainJob) Snapshot() TrainJobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return TrainJobView{
		ID:          j.ID,
		Status:      j.Status,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Result:      j.Result,
	}
}

// TrainJobResult summarizes a completed training run.
type TrainJobResult struct {
	People        int `json:"people"`
	Samples       int `json:"samples"`
	SkippedImages int `json:"skipped_images"`
	FallbackUsed  int `json:"fallback_used"`
}

// GetStatus returns the current job status.
func (j *TrainJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// setRunning marks the job as running.
func (j *TrainJob) setRunning() {
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.mu.Unlock()
}

// setCompleted marks the job as completed with its result.
func (j *TrainJob) setCompleted(result *TrainJobResult) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusCompleted
	j.Result = result
	j.CompletedAt = &now
	j.mu.Unlock()
}

// setFailed marks the job as failed with an error message.
func (j *TrainJob) setFailed(msg string) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusFailed
	j.Error = msg
	j.CompletedAt = &now
	j.mu.Unlock()
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*TrainJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*TrainJob),
	}
}

// CreateJob creates a new training job in the pending state.
func (m *JobManager) CreateJob(id string) *TrainJob {
	job := &TrainJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Running reports whether any job is currently pending or running.
func (m *JobManager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, job := range m.jobs {
		switch job.GetStatus() {
		case JobStatusPending, JobStatusRunning:
			return true
		}
	}
	return false
}
