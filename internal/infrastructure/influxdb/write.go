package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// ValidationPoint describes one validation run for time-series recording.
type ValidationPoint struct {
	Mode         string
	Valid        bool
	Score        int
	ErrorCount   int
	WarningCount int
	FixCount     int
	Duration     time.Duration
}

// WriteValidation records a validation run in the validation_runs measurement.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Tags (mode, valid) are low-cardinality so dashboards can group by them;
// everything numeric goes in fields.
//
// Example:
//
//	client.WriteValidation(influxdb.ValidationPoint{
//	    Mode:     "moderate",
//	    Valid:    true,
//	    Score:    96,
//	    Duration: elapsed,
//	})
func (c *Client) WriteValidation(p ValidationPoint) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"validation_runs",
		map[string]string{
			"mode":  p.Mode,
			"valid": strconv.FormatBool(p.Valid),
		},
		map[string]interface{}{
			"score":         p.Score,
			"error_count":   p.ErrorCount,
			"warning_count": p.WarningCount,
			"fix_count":     p.FixCount,
			"duration_ms":   float64(p.Duration.Microseconds()) / 1000.0,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStageErrors records per-stage error counts for a validation run.
//
// One point per stage that produced errors, tagged by stage name so
// dashboards can chart which pipeline stages fail most often.
//
// Parameters:
//   - stage: Pipeline stage name (e.g., "structure", "referential")
//   - errorCount: Number of errors that stage produced
func (c *Client) WriteStageErrors(stage string, errorCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"validation_stage_errors",
		map[string]string{
			"stage": stage,
		},
		map[string]interface{}{
			"error_count": errorCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed history).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
