package liveness

import (
	"encoding/json"
	"time"
)

// Status is the state reported by Check.
type Status string

const (
	StatusNoData          Status = "NO_DATA"
	StatusSafe            Status = "SAFE"
	StatusExecuted        Status = "EXECUTED"
	StatusAlreadyExecuted Status = "ALREADY_EXECUTED"
	StatusError           Status = "ERROR"
)

// Result is the outcome of one Check.
type Result struct {
	Status  Status
	Message string
	// Remaining is the time left before release. Only set for SAFE.
	Remaining time.Duration
	// LastSeen is the last heartbeat, when one could be read.
	LastSeen time.Time
	// Locator is where the nominee can fetch the released will.
	Locator string
	// Notified reports whether the nominee has been told about the release.
	Notified bool
}

// Final reports whether the switch has fired and the nominee knows.
func (r Result) Final() bool {
	return (r.Status == StatusExecuted || r.Status == StatusAlreadyExecuted) && r.Notified
}

type resultJSON struct {
	Status           Status `json:"status"`
	Message          string `json:"message"`
	LastSeen         string `json:"last_seen,omitempty"`
	RemainingSeconds int64  `json:"remaining_seconds,omitempty"`
	Locator          string `json:"locator,omitempty"`
	Notified         bool   `json:"notified,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Status:   r.Status,
		Message:  r.Message,
		Locator:  r.Locator,
		Notified: r.Notified,
	}
	if !r.LastSeen.IsZero() {
		out.LastSeen = r.LastSeen.Format(time.RFC3339)
	}
	if r.Status == StatusSafe {
		out.RemainingSeconds = int64(r.Remaining / time.Second)
	}
	return json.Marshal(out)
}

func errorResult(msg string) Result {
	return Result{Status: StatusError, Message: msg}
}
