package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/boardlink/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// These tests never dial the broker; connection-dependent behaviour lives
// in integration_test.go behind the integration build tag.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:           "127.0.0.1",
			Port:           1883,
			ClientIDPrefix: "boardlink-test",
			TLS:            false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
	}
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew(t *testing.T) {
	client := New(testConfig())

	if client.IsConnected() {
		t.Error("IsConnected() = true for freshly constructed client, want false")
	}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestClientIDHasPrefixAndSuffix(t *testing.T) {
	client := New(testConfig())

	id := client.ClientID()
	if !strings.HasPrefix(id, "boardlink-test-") {
		t.Errorf("ClientID() = %q, want prefix %q", id, "boardlink-test-")
	}

	suffix := strings.TrimPrefix(id, "boardlink-test-")
	if len(suffix) != clientIDSuffixLen {
		t.Errorf("ClientID() suffix length = %d, want %d", len(suffix), clientIDSuffixLen)
	}
}

func TestClientIDsAreUnique(t *testing.T) {
	a := New(testConfig())
	b := New(testConfig())

	if a.ClientID() == b.ClientID() {
		t.Errorf("two clients share identity %q", a.ClientID())
	}
}

func TestBuildClientIDDefaultPrefix(t *testing.T) {
	id := buildClientID("")
	if !strings.HasPrefix(id, "boardlink-") {
		t.Errorf("buildClientID(\"\") = %q, want prefix %q", id, "boardlink-")
	}
}

// =============================================================================
// Option Building Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("len(Servers) = %d, want 1", len(opts.Servers))
	}

	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want %q", got, "tcp://127.0.0.1:1883")
	}

	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}

	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}

	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("broker scheme = %q, want %q", got, "ssl")
	}

	if opts.TLSConfig == nil {
		t.Fatal("TLSConfig = nil, want configured")
	}
}

func TestBuildClientOptionsAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "relay"
	cfg.Auth.Password = "secret"
	opts := buildClientOptions(cfg)

	if opts.Username != "relay" {
		t.Errorf("Username = %q, want %q", opts.Username, "relay")
	}

	if opts.Password != "secret" {
		t.Errorf("Password = %q, want %q", opts.Password, "secret")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	cfg.LastWill.Topic = "boardlink/internal/PiOne"
	cfg.LastWill.Message = "SHUTDOWN"

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}

	if opts.WillTopic != "boardlink/internal/PiOne" {
		t.Errorf("WillTopic = %q, want %q", opts.WillTopic, "boardlink/internal/PiOne")
	}

	if string(opts.WillPayload) != "SHUTDOWN" {
		t.Errorf("WillPayload = %q, want %q", opts.WillPayload, "SHUTDOWN")
	}
}

func TestConfigureLWTSkippedWithoutTopic(t *testing.T) {
	cfg := testConfig()

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	if opts.WillEnabled {
		t.Error("WillEnabled = true without a will topic, want false")
	}
}

// =============================================================================
// Disconnected-State Tests
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	client := New(testConfig())

	err := client.Publish("", []byte("test"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := New(testConfig())

	err := client.Publish("test/topic", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishPayloadTooLarge(t *testing.T) {
	client := New(testConfig())

	oversized := make([]byte, maxPayloadSize+1)
	err := client.Publish("test/topic", oversized, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := New(testConfig())

	err := client.Publish("test/topic", []byte("test"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	client := New(testConfig())

	err := client.Subscribe("", 1)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	client := New(testConfig())

	err := client.Subscribe("test/topic", 3)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeDisconnected(t *testing.T) {
	client := New(testConfig())

	err := client.Subscribe("test/topic", 1)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	client := New(testConfig())

	err := client.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestUnsubscribeDisconnected(t *testing.T) {
	client := New(testConfig())

	err := client.Unsubscribe("test/topic")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Disconnect and HealthCheck Tests
// =============================================================================

func TestDisconnectNeverConnected(t *testing.T) {
	client := New(testConfig())

	if err := client.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v, want nil", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Disconnect(), want false")
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	client := New(testConfig())

	if err := client.Disconnect(); err != nil {
		t.Fatalf("first Disconnect() error = %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Errorf("second Disconnect() error = %v, want nil", err)
	}
}

func TestDisconnectZeroValue(t *testing.T) {
	client := &Client{}
	if err := client.Disconnect(); err != nil {
		t.Errorf("Disconnect() on zero-value client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := New(testConfig())

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := New(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := client.HealthCheck(ctx)
	if err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

// =============================================================================
// Subscription Tracking Tests
// =============================================================================

func TestSubscriptionCount_Empty(t *testing.T) {
	client := New(testConfig())

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestHasSubscription_NotSubscribed(t *testing.T) {
	client := New(testConfig())

	if client.HasSubscription("nonexistent/topic") {
		t.Error("HasSubscription() should be false for unsubscribed topic")
	}
}

// =============================================================================
// Message Dispatch Tests
// =============================================================================

func TestDispatchWithoutHandler(t *testing.T) {
	client := New(testConfig())

	// No handler set; dispatch must be a safe no-op.
	client.dispatchMessage(nil, &stubMessage{topic: "t", payload: []byte("p")})
}

func TestDispatchDeliversToHandler(t *testing.T) {
	client := New(testConfig())

	var mu sync.Mutex
	var gotTopic, gotPayload string

	client.SetOnMessage(func(topic string, payload []byte) error {
		mu.Lock()
		gotTopic = topic
		gotPayload = string(payload)
		mu.Unlock()
		return nil
	})

	client.dispatchMessage(nil, &stubMessage{
		topic:   "boardlink/boards/PiOne/commands",
		payload: []byte(`{"action":"EVENT"}`),
	})

	mu.Lock()
	defer mu.Unlock()

	if gotTopic != "boardlink/boards/PiOne/commands" {
		t.Errorf("handler topic = %q, want %q", gotTopic, "boardlink/boards/PiOne/commands")
	}

	if gotPayload != `{"action":"EVENT"}` {
		t.Errorf("handler payload = %q, want %q", gotPayload, `{"action":"EVENT"}`)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	client := New(testConfig())

	logger := &mockLogger{}
	client.SetLogger(logger)

	client.SetOnMessage(func(topic string, payload []byte) error {
		panic("handler exploded")
	})

	// Must not propagate the panic.
	client.dispatchMessage(nil, &stubMessage{topic: "t", payload: []byte("p")})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.errors) != 1 {
		t.Errorf("logged errors = %d, want 1", len(logger.errors))
	}
}

func TestDispatchLogsHandlerError(t *testing.T) {
	client := New(testConfig())

	logger := &mockLogger{}
	client.SetLogger(logger)

	client.SetOnMessage(func(topic string, payload []byte) error {
		return errors.New("handler error")
	})

	client.dispatchMessage(nil, &stubMessage{topic: "t", payload: []byte("p")})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.warns) != 1 {
		t.Errorf("logged warnings = %d, want 1", len(logger.warns))
	}
}

func TestSetLogger(t *testing.T) {
	client := New(testConfig())

	logger := &mockLogger{}
	client.SetLogger(logger)

	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)

	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// =============================================================================
// Test Doubles
// =============================================================================

// stubMessage implements the subset of pahomqtt.Message the dispatcher touches.
type stubMessage struct {
	topic   string
	payload []byte
}

func (m *stubMessage) Duplicate() bool   { return false }
func (m *stubMessage) Qos() byte         { return 0 }
func (m *stubMessage) Retained() bool    { return false }
func (m *stubMessage) Topic() string     { return m.topic }
func (m *stubMessage) MessageID() uint16 { return 0 }
func (m *stubMessage) Payload() []byte   { return m.payload }
func (m *stubMessage) Ack()              {}

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
