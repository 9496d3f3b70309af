package audit

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	SessionStarted    = "started"
	SessionInProgress = "in-progress"
	SessionCompleted  = "completed"
	SessionError      = "error"
)

// Step statuses.
const (
	StepCompleted = "completed"
	StepError     = "error"
)

// TotalSteps is the length of the stepwise audit pipeline.
const TotalSteps = 6

// StepNames indexes the pipeline steps 1..6.
var StepNames = [TotalSteps]string{
	"load-claim",
	"price-tariffs",
	"validate-authorizations",
	"detect-duplicates",
	"validate-pertinence",
	"apply-rules",
}

// SessionStep is the audit-trail record of one executed step.
type SessionStep struct {
	Number     int                    `json:"number"`
	Name       string                 `json:"name"`
	Status     string                 `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	DurationMS int64                  `json:"duration_ms"`
	Evidence   map[string]interface{} `json:"evidence,omitempty"`
	Error      *string                `json:"error,omitempty"`
}

// Session maps to the audit_session table. CurrentStep is the last completed
// step (0 before any step ran); steps are appended as they execute and are
// never re-run. An errored session stays errored; the operator starts a
// fresh one.
type Session struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	ClaimID     uuid.UUID     `db:"claim_id" json:"claim_id"`
	Status      string        `db:"status" json:"status"`
	CurrentStep int           `db:"current_step" json:"current_step"`
	Steps       []SessionStep `db:"steps" json:"steps"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}
