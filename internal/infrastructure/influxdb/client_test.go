package influxdb_test

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wtthornton/homeiq-core/internal/infrastructure/config"
	"github.com/wtthornton/homeiq-core/internal/infrastructure/influxdb"
)

// fakeInflux is a minimal InfluxDB v2 HTTP stand-in. It answers pings
// and captures line-protocol write bodies for inspection.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
	server *httptest.Server
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()

	f := &fakeInflux{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ping":
			w.WriteHeader(http.StatusNoContent)
		case strings.HasSuffix(r.URL.Path, "/write"):
			body := r.Body
			if r.Header.Get("Content-Encoding") == "gzip" {
				gz, err := gzip.NewReader(r.Body)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				defer gz.Close()
				body = gz
			}
			data, _ := io.ReadAll(body)
			f.mu.Lock()
			f.writes = append(f.writes, string(data))
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

// received returns all captured line-protocol payloads joined together.
func (f *fakeInflux) received() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "homeiq-dev-token",
		Org:           "homeiq",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error when disabled")
	}
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1") // Nothing listens here

	_, err := influxdb.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error for unreachable server")
	}
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := newFakeInflux(t)
	cfg := testConfig(fake.server.URL)
	cfg.BatchSize = 0     // Should use default
	cfg.FlushInterval = 0 // Should use default

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false with default batch settings")
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteValidation(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteValidation(influxdb.ValidationPoint{
		Mode:         "moderate",
		Valid:        true,
		Score:        96,
		ErrorCount:   0,
		WarningCount: 2,
		FixCount:     1,
		Duration:     12 * time.Millisecond,
	})
	client.Flush()

	got := fake.received()
	if !strings.Contains(got, "validation_runs") {
		t.Fatalf("write body %q missing validation_runs measurement", got)
	}
	if !strings.Contains(got, "mode=moderate") {
		t.Errorf("write body %q missing mode tag", got)
	}
	if !strings.Contains(got, "valid=true") {
		t.Errorf("write body %q missing valid tag", got)
	}
	if !strings.Contains(got, "score=96i") {
		t.Errorf("write body %q missing score field", got)
	}
}

func TestWriteStageErrors(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteStageErrors("referential", 3)
	client.Flush()

	got := fake.received()
	if !strings.Contains(got, "validation_stage_errors") {
		t.Fatalf("write body %q missing measurement", got)
	}
	if !strings.Contains(got, "stage=referential") {
		t.Errorf("write body %q missing stage tag", got)
	}
}

func TestWriteAfterClose(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	before := fake.received()

	// Writes after Close are silently dropped.
	client.WriteValidation(influxdb.ValidationPoint{Mode: "strict", Score: 0})
	client.Flush()

	if got := fake.received(); got != before {
		t.Errorf("write after Close() reached server: %q", got)
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheckAfterClose(t *testing.T) {
	fake := newFakeInflux(t)

	client, err := influxdb.Connect(testConfig(fake.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	err = client.HealthCheck(t.Context())
	if !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}
