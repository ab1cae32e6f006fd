// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "time"

// RunState is a state of the pipeline orchestrator.
type RunState int

const (
	StateIdle RunState = iota
	StateSplitting
	StateProcessing
	StateMerging
	StatePersisting
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSplitting:
		return "splitting"
	case StateProcessing:
		return "processing"
	case StateMerging:
		return "merging"
	case StatePersisting:
		return "persisting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunOutcome summarizes how a run ended.
type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomePartial RunOutcome = "partial"
	OutcomeFailed  RunOutcome = "failed"
)

// FailedRow records a row excluded from the output set.
type FailedRow struct {
	RowIndex int
	Phase    Phase
	Attempts int
	Err      string
}

// RunReport is the observable result of one pipeline run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	FinalState RunState // State the run was in when it ended
	Outcome    RunOutcome
	TotalRows  int
	Succeeded  int
	Inserted   int // Products confirmed written by the sink
	Partitions int
	OutputPath string
	Failed     []FailedRow
	Error      string // Fatal error, empty unless Outcome is OutcomeFailed
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
