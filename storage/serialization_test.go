package storage

import (
	"testing"
	"time"

	"github.com/poiesic/catalogsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRunReport(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name   string
		report *core.RunReport
	}{
		{
			name:   "minimal report",
			report: &core.RunReport{RunID: "r1", StartedAt: now},
		},
		{
			name: "partial run with failures",
			report: &core.RunReport{
				RunID:      "8f7c2b3a-5d1e-4c9a-9b8e-0a1b2c3d4e5f",
				StartedAt:  now,
				FinishedAt: now.Add(90 * time.Second),
				FinalState: core.StateIdle,
				Outcome:    core.OutcomePartial,
				TotalRows:  1200,
				Succeeded:  1198,
				Inserted:   1198,
				Partitions: 4,
				OutputPath: "/var/lib/catalogsync/products.json",
				Failed: []core.FailedRow{
					{RowIndex: 17, Phase: core.PhaseParse, Attempts: 0, Err: "expected 12 fields, got 11"},
					{RowIndex: 640, Phase: core.PhaseMapping, Attempts: 3, Err: "mapping service: rate limited: 429"},
				},
			},
		},
		{
			name: "failed run",
			report: &core.RunReport{
				RunID:      "r3",
				StartedAt:  now,
				FinishedAt: now.Add(time.Minute),
				FinalState: core.StateFailed,
				Outcome:    core.OutcomeFailed,
				Error:      "io error: open input.tsv: no such file or directory",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalRunReport(tt.report)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalRunReport(data)
			require.NoError(t, err)
			assert.Equal(t, tt.report, decoded)
		})
	}
}

func TestUnmarshalRunReport_Truncated(t *testing.T) {
	report := &core.RunReport{
		RunID:     "r1",
		StartedAt: time.Now().UTC(),
		Failed:    []core.FailedRow{{RowIndex: 1, Phase: core.PhaseMapping, Err: "boom"}},
	}
	data := MarshalRunReport(report)

	for i := 0; i < len(data); i++ {
		_, err := UnmarshalRunReport(data[:i])
		assert.ErrorIs(t, err, ErrSerializationFailed, "prefix of %d bytes", i)
	}
}

func TestUnmarshalRunReport_UnknownVersion(t *testing.T) {
	data := MarshalRunReport(&core.RunReport{RunID: "r1"})
	data[0] = 9

	_, err := UnmarshalRunReport(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestMarshalUnmarshalProduct(t *testing.T) {
	cdn := "https://cdn.example.com/a.jpg"
	product := &core.CanonicalProduct{
		Name:           "HEMOSURE",
		Type:           "non-inventory",
		VendorID:       "v1",
		ManufacturerID: "m1",
		Options:        []core.Option{},
		Variants: []core.Variant{{
			SKU:    "S-1",
			Price:  12.5,
			Images: []core.Image{{FileName: "a.jpg", CDNLink: &cdn, Index: 0}},
		}},
	}

	data, err := MarshalProduct(product)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"vendorId":"v1"`)

	decoded, err := UnmarshalProduct(data)
	require.NoError(t, err)
	assert.Equal(t, product, decoded)

	_, err = UnmarshalProduct([]byte("{not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
