// Package progress carries run liveness from the worker pool to any number
// of renderers (terminal, dashboard, SSE clients) without ever blocking
// the computation.
package progress

import (
	"encoding/json"
	"fmt"
)

// Status is the kind of a progress event.
type Status string

const (
	// StatusProcessing is published when a worker picks up a job.
	StatusProcessing Status = "processing"
	// StatusProcessed is published when a job produced a result.
	StatusProcessed Status = "processed"
	// StatusError is published when a job failed; its result is null.
	StatusError Status = "error"
	// StatusFinished is published once per sheet written to the report.
	StatusFinished Status = "finished"
	// StatusCompleted is published exactly once, after the report is flushed.
	StatusCompleted Status = "completed"
	// StatusKeepalive is synthesized by WithKeepalive and never stored.
	StatusKeepalive Status = "keepalive"
)

// Event is one progress record.
type Event struct {
	Status Status
	// UnitID names the unit or pair the event is about. Empty for
	// run-level events.
	UnitID string
	// Job is the 1-based sequence number of the job within the run, or 0.
	Job int
}

// Terminal reports whether e ends a stream.
func (e Event) Terminal() bool { return e.Status == StatusCompleted }

// String renders e as "[status] unit".
func (e Event) String() string {
	if e.UnitID == "" {
		return fmt.Sprintf("[%s]", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Status, e.UnitID)
}

type wireEvent struct {
	Status Status  `json:"status"`
	UnitID *string `json:"unit_id"`
	Job    int     `json:"job"`
}

// MarshalJSON encodes e as {"status": ..., "unit_id": ...|null, "job": n}.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Status: e.Status, Job: e.Job}
	if e.UnitID != "" {
		w.UnitID = &e.UnitID
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Status, e.Job, e.UnitID = w.Status, w.Job, ""
	if w.UnitID != nil {
		e.UnitID = *w.UnitID
	}
	return nil
}
