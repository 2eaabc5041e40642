// Package influxdb provides InfluxDB connectivity for HomeIQ Core.
//
// It wraps the official influxdb-client-go v2 library with HomeIQ-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series recording for:
//   - Validation run outcomes (score, error and warning counts, duration)
//   - Per-stage error counts for pipeline dashboards
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "homeiq",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteValidation(influxdb.ValidationPoint{
//	    Mode:  "moderate",
//	    Valid: true,
//	    Score: 96,
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This keeps per-request validation latency independent of InfluxDB availability.
package influxdb
