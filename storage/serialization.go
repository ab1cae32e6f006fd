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


package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/catalogsync/core"
)

// runReportVersion is written as the first byte of every encoded report.
const runReportVersion = 1

// RunReportMUS is the MUS serializer for core.RunReport.
var RunReportMUS = runReportMUS{}

type runReportMUS struct{}

func (runReportMUS) Marshal(r core.RunReport, bs []byte) (n int) {
	n = varint.Int.Marshal(runReportVersion, bs)
	n += ord.String.Marshal(r.RunID, bs[n:])
	n += varint.Int64.Marshal(timeToMicros(r.StartedAt), bs[n:])
	n += varint.Int64.Marshal(timeToMicros(r.FinishedAt), bs[n:])
	n += varint.Int.Marshal(int(r.FinalState), bs[n:])
	n += ord.String.Marshal(string(r.Outcome), bs[n:])
	n += varint.Int.Marshal(r.TotalRows, bs[n:])
	n += varint.Int.Marshal(r.Succeeded, bs[n:])
	n += varint.Int.Marshal(r.Inserted, bs[n:])
	n += varint.Int.Marshal(r.Partitions, bs[n:])
	n += ord.String.Marshal(r.OutputPath, bs[n:])
	n += varint.Int.Marshal(len(r.Failed), bs[n:])
	for _, f := range r.Failed {
		n += varint.Int.Marshal(f.RowIndex, bs[n:])
		n += ord.String.Marshal(string(f.Phase), bs[n:])
		n += varint.Int.Marshal(f.Attempts, bs[n:])
		n += ord.String.Marshal(f.Err, bs[n:])
	}
	n += ord.String.Marshal(r.Error, bs[n:])
	return n
}

func (runReportMUS) Unmarshal(bs []byte) (r core.RunReport, n int, err error) {
	var (
		m       int
		version int
		state   int
		outcome string
		count   int
		started int64
		ended   int64
	)
	if version, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if version != runReportVersion {
		err = fmt.Errorf("%w: run report v%d", ErrUnsupportedVersion, version)
		return
	}
	if r.RunID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if started, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	r.StartedAt = microsToTime(started)
	if ended, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	r.FinishedAt = microsToTime(ended)
	if state, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	r.FinalState = core.RunState(state)
	if outcome, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	r.Outcome = core.RunOutcome(outcome)
	for _, dst := range []*int{&r.TotalRows, &r.Succeeded, &r.Inserted, &r.Partitions} {
		if *dst, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
	}
	if r.OutputPath, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count < 0 || count > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	if count > 0 {
		r.Failed = make([]core.FailedRow, count)
	}
	for i := range r.Failed {
		f := &r.Failed[i]
		var phase string
		if f.RowIndex, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
		if phase, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
		f.Phase = core.Phase(phase)
		if f.Attempts, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
		if f.Err, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
	}
	r.Error, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	return
}

func (runReportMUS) Size(r core.RunReport) (size int) {
	size = varint.Int.Size(runReportVersion)
	size += ord.String.Size(r.RunID)
	size += varint.Int64.Size(timeToMicros(r.StartedAt))
	size += varint.Int64.Size(timeToMicros(r.FinishedAt))
	size += varint.Int.Size(int(r.FinalState))
	size += ord.String.Size(string(r.Outcome))
	size += varint.Int.Size(r.TotalRows)
	size += varint.Int.Size(r.Succeeded)
	size += varint.Int.Size(r.Inserted)
	size += varint.Int.Size(r.Partitions)
	size += ord.String.Size(r.OutputPath)
	size += varint.Int.Size(len(r.Failed))
	for _, f := range r.Failed {
		size += varint.Int.Size(f.RowIndex)
		size += ord.String.Size(string(f.Phase))
		size += varint.Int.Size(f.Attempts)
		size += ord.String.Size(f.Err)
	}
	return size + ord.String.Size(r.Error)
}

// Zero times encode as 0 so they survive the round trip as time.Time{}.
func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microsToTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// MarshalRunReport serializes a RunReport to bytes.
func MarshalRunReport(report *core.RunReport) []byte {
	buf := make([]byte, RunReportMUS.Size(*report))
	RunReportMUS.Marshal(*report, buf)
	return buf
}

// UnmarshalRunReport deserializes a RunReport from bytes.
func UnmarshalRunReport(data []byte) (*core.RunReport, error) {
	report, _, err := RunReportMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &report, nil
}

// MarshalProduct serializes a product as its canonical JSON document.
func MarshalProduct(product *core.CanonicalProduct) ([]byte, error) {
	data, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalProduct deserializes a product document.
func UnmarshalProduct(data []byte) (*core.CanonicalProduct, error) {
	var product core.CanonicalProduct
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &product, nil
}
