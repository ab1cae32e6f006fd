package pipeline

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 2)

	tracker.Start()
	tracker.Record(true)
	tracker.Record(false)
	tracker.Record(true)
	tracker.Record(true)

	time.Sleep(time.Millisecond)
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))

	output := buf.String()
	assert.Contains(t, output, "2/4", "should report at the interval")
	assert.Contains(t, output, "4/4 (100.0%), 1 failed")
}

func TestProgressTracker_FinishKeepsCount(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 100)

	tracker.Start()
	tracker.Record(true)
	tracker.Record(true)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "2/10 (20.0%)", "unrecorded rows are not done")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
	assert.Zero(t, tracker.Elapsed(), "finished tracker is stopped")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 10)

	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 1)

	// Should not panic when not started
	tracker.Record(true)
	tracker.Finish()

	assert.Equal(t, "", buf.String(), "should have no output when not started")
}

func TestProgressTracker_Nil(t *testing.T) {
	var tracker *ProgressTracker
	tracker.Start()
	tracker.Record(false)
	tracker.Finish()
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1000, 3)

	tracker.Start()
	tracker.Record(true)
	tracker.Record(true)
	assert.Equal(t, "", buf.String(), "should not print under interval")

	tracker.Record(true)
	assert.Contains(t, buf.String(), "3/1000")
}

func TestProgressTracker_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 200, 50)
	tracker.Start()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tracker.Record(true)
			}
		}()
	}
	wg.Wait()
	tracker.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\r")
	assert.Contains(t, lines[len(lines)-1], "200/200")
	assert.Contains(t, lines[len(lines)-1], "rows/s")
}
