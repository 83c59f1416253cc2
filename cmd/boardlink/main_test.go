package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("BOARDLINK_CONFIG")
	defer os.Setenv("BOARDLINK_CONFIG", originalEnv)

	os.Setenv("BOARDLINK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingIdentifier verifies run fails when the board identifier
// is not configured.
func TestRun_MissingIdentifier(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
board:
  identifier: ""
  platform: "RaspberryPi 3"

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id_prefix: "test"
  qos: 0

history:
  enabled: false

api:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BOARDLINK_CONFIG")
	defer os.Setenv("BOARDLINK_CONFIG", originalEnv)
	os.Setenv("BOARDLINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a board identifier")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("BOARDLINK_CONFIG")
	defer os.Setenv("BOARDLINK_CONFIG", originalEnv)

	os.Unsetenv("BOARDLINK_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("BOARDLINK_CONFIG")
	defer os.Setenv("BOARDLINK_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("BOARDLINK_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestHistoryRepo_NilStaysNil guards against handing the API a non-nil
// interface wrapping a nil pointer.
func TestHistoryRepo_NilStaysNil(t *testing.T) {
	if repo := historyRepo(nil); repo != nil {
		t.Error("historyRepo(nil) should be nil, not a typed nil")
	}
}

// TestRun_StartupAndShutdown tests full startup and clean shutdown. The
// relay connects lazily, so no broker is required: the connect attempt
// fails in the background while the daemon keeps running.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
board:
  identifier: "TestBoard"
  platform: "RaspberryPi 3"

devices:
  - kind: gpio
    name: "GPIO_34"
    direction: out
    label: "LED"
  - kind: gpio
    name: "GPIO_17"
    direction: in
    label: "Button"
  - kind: pwm
    name: "PWM0"
  - kind: temperature_sensor
    monitor: true

mqtt:
  broker:
    host: "127.0.0.1"
    port: 19999
    client_id_prefix: "test-startup"
  qos: 0

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

history:
  enabled: true
  retention_days: 7

api:
  enabled: true
  host: "127.0.0.1"
  port: 19085
  timeouts:
    read: 5
    write: 5
    idle: 5

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BOARDLINK_CONFIG")
	defer os.Setenv("BOARDLINK_CONFIG", originalEnv)
	os.Setenv("BOARDLINK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error: %v", err)
	}
}

// TestRun_ContextCancelledDuringStartup verifies cancellation produces a
// clean shutdown rather than a hang.
func TestRun_ContextCancelledDuringStartup(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
board:
  identifier: "TestBoard"
  platform: "RaspberryPi 3"

mqtt:
  broker:
    host: "127.0.0.1"
    port: 19999
    client_id_prefix: "test-cancel"
  qos: 0

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

history:
  enabled: true
  retention_days: 7

api:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BOARDLINK_CONFIG")
	defer os.Setenv("BOARDLINK_CONFIG", originalEnv)
	os.Setenv("BOARDLINK_CONFIG", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Logf("run() returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after context cancellation")
	}
}
