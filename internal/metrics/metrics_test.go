package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("jobs_dropped", nil)
	r.IncrementCounter("jobs_dropped", nil)
	r.AddToCounter("jobs_dropped", 3, nil)

	assert.Equal(t, float64(5), r.CounterValue("jobs_dropped", nil))
	assert.Equal(t, float64(0), r.CounterValue("never_touched", nil))
}

func TestCounters_LabelsAreSeparate(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("jobs_dropped", map[string]string{"reason": "fatal"})
	r.IncrementCounter("jobs_dropped", map[string]string{"reason": "exhausted"})
	r.IncrementCounter("jobs_dropped", map[string]string{"reason": "exhausted"})

	assert.Equal(t, float64(1), r.CounterValue("jobs_dropped", map[string]string{"reason": "fatal"}))
	assert.Equal(t, float64(2), r.CounterValue("jobs_dropped", map[string]string{"reason": "exhausted"}))
}

func TestTimers(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("job_duration", 100*time.Millisecond, nil)
	r.RecordTimer("job_duration", 300*time.Millisecond, nil)

	snapshot := r.Snapshot()
	timers := snapshot["timers"].(map[string]*TimerMetric)
	timer := timers["job_duration"]
	require.NotNil(t, timer)

	assert.Equal(t, int64(2), timer.Count)
	assert.Equal(t, float64(100), timer.Min)
	assert.Equal(t, float64(300), timer.Max)
	assert.Equal(t, float64(200), timer.Average)
}

func TestGauges(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("queue_depth", 12, nil)
	r.SetGauge("queue_depth", 7, nil)

	snapshot := r.Snapshot()
	gauges := snapshot["gauges"].(map[string]*Metric)
	require.NotNil(t, gauges["queue_depth"])
	assert.Equal(t, float64(7), gauges["queue_depth"].Value)
}

func TestSnapshotContainsUptime(t *testing.T) {
	r := NewRegistry()
	snapshot := r.Snapshot()

	assert.Contains(t, snapshot, "uptime_ms")
	assert.Contains(t, snapshot, "timestamp")
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.IncrementCounter("concurrent", nil)
				r.RecordTimer("concurrent_timer", time.Millisecond, nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(1000), r.CounterValue("concurrent", nil))
}
