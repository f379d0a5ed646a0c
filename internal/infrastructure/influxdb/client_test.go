package influxdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/chimera-core/internal/infrastructure/config"
	"github.com/nerrad567/chimera-core/internal/infrastructure/influxdb"
)

// testConfig points at a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "chimera-dev-token",
		Org:           "chimera",
		Bucket:        "registry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip skips the test when no InfluxDB is reachable.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	client, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClient_WriteDeviceChange(t *testing.T) {
	client := connectOrSkip(t)

	errs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	client.WriteDeviceChange(influxdb.DeviceChange{
		DeviceID:           7,
		Change:             "isolate",
		Group:              "Staff",
		BlockedCategories:  4,
		HasCustomBlocklist: true,
		Timestamp:          time.Now(),
	})
	client.Flush()

	select {
	case err := <-errs:
		t.Errorf("async write error = %v", err)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestClient_HealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client.Close() //nolint:errcheck // Closing to test disconnected state
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}
