package model

import "time"

// RunKind distinguishes the scans recorded in run history.
type RunKind string

const (
	RunAnalysis   RunKind = "analysis"
	RunProcessing RunKind = "processing"
	RunSearch     RunKind = "search"
)

// Run is one recorded scan.
type Run struct {
	// ID is a UUID assigned when the run is recorded.
	ID string `json:"id"`

	Kind    RunKind `json:"kind"`
	Mailbox string  `json:"mailbox"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Messages is the number of messages scanned.
	Messages    int `json:"messages"`
	Moved       int `json:"moved"`
	Replied     int `json:"replied"`
	ReplyFailed int `json:"reply_failed"`

	// Error holds the failure message of an aborted run.
	Error string `json:"error,omitempty"`

	// Summary is the JSON-encoded analytics summary of an analysis run.
	Summary string `json:"summary,omitempty"`

	Actions []RunAction `json:"actions,omitempty"`
}

// Duration is the wall-clock time the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Failed reports whether the run aborted.
func (r Run) Failed() bool { return r.Error != "" }

// RunAction is the per-message outcome of a processing run.
type RunAction struct {
	MessageUID uint32 `json:"message_uid"`
	Sender     string `json:"sender"`
	Subject    string `json:"subject"`
	Rule       string `json:"rule,omitempty"`
	Folder     string `json:"folder,omitempty"`
	Replied    bool   `json:"replied"`
}
