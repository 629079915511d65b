package domain

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CancelledMessage is recorded on jobs stopped by the user.
const CancelledMessage = "Generation cancelled by user"

// GenerationJob tracks the background production of one asset.
type GenerationJob struct {
	ID           string    `json:"id" validate:"required"`
	AssetID      string    `json:"assetId" validate:"required"`
	Status       JobStatus `json:"status" validate:"required,oneof=queued processing completed failed"`
	Progress     int       `json:"progress" validate:"gte=0,lte=100"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    string    `json:"createdAt" validate:"required"`
	CompletedAt  string    `json:"completedAt,omitempty"`
}

// JobPatch holds the mutable job fields; nil means unchanged.
type JobPatch struct {
	Status       *JobStatus `json:"status"`
	Progress     *int       `json:"progress"`
	ErrorMessage *string    `json:"errorMessage"`
}

// Apply merges the patch into j. completedAt is stamped once, on the first
// transition into a terminal status.
func (patch JobPatch) Apply(j *GenerationJob, now string) {
	if patch.Status != nil {
		j.Status = *patch.Status
	}
	if patch.Progress != nil {
		j.Progress = *patch.Progress
	}
	if patch.ErrorMessage != nil {
		j.ErrorMessage = *patch.ErrorMessage
	}
	if j.Status.Terminal() && j.CompletedAt == "" {
		j.CompletedAt = now
	}
}

// JobProgress builds a patch that moves a job to status at the given progress.
func JobProgress(status JobStatus, progress int) JobPatch {
	return JobPatch{Status: &status, Progress: &progress}
}

// JobFailure builds a patch that marks a job failed with msg.
func JobFailure(msg string) JobPatch {
	status := JobStatusFailed
	progress := 0
	return JobPatch{Status: &status, Progress: &progress, ErrorMessage: &msg}
}

// JobCancellation builds the patch recorded when a user cancels a job.
// Progress is left where the job stopped.
func JobCancellation() JobPatch {
	status := JobStatusFailed
	msg := CancelledMessage
	return JobPatch{Status: &status, ErrorMessage: &msg}
}
