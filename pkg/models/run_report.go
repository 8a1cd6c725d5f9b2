package models

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the overall outcome of one invocation.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusNoData  RunStatus = "no_data"
	RunStatusFailure RunStatus = "failure"
)

// RunReport is what the invocation wrapper reports after a run.
type RunReport struct {
	RunID    uuid.UUID      `json:"run_id"`
	Status   RunStatus      `json:"status"`
	Records  int            `json:"records"`
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	Reasons  map[Reason]int `json:"reasons,omitempty"`
	Queued   BatchCounts    `json:"queued"`
	Started  time.Time      `json:"started_at"`
	Duration time.Duration  `json:"duration"`
	Error    string         `json:"error,omitempty"`
}

// AddReason counts one occurrence of a dropped decision.
func (r *RunReport) AddReason(reason Reason) {
	if r.Reasons == nil {
		r.Reasons = make(map[Reason]int)
	}
	r.Reasons[reason]++
}

// Clone returns a copy of r that shares no maps with it.
func (r *RunReport) Clone() *RunReport {
	c := *r
	c.Reasons = maps.Clone(r.Reasons)
	return &c
}
