package testkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-refqa-server/internal/app"
)

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnvContext provides access to properties collected during environment startup
type TestEnvContext interface {
	GetProperties() map[string]any
	GetProperty(name string) (any, bool)
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetContext() TestEnvContext
}

type testEnvContextImpl struct {
	properties map[string]any
}

func (c *testEnvContextImpl) GetProperties() map[string]any {
	return c.properties
}

func (c *testEnvContextImpl) GetProperty(name string) (any, bool) {
	val, ok := c.properties[name]
	return val, ok
}

type testEnvImpl struct {
	services []Service
	context  *testEnvContextImpl
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) TestEnv {
	return &testEnvImpl{
		services: services,
		context:  &testEnvContextImpl{properties: make(map[string]any)},
	}
}

func (e *testEnvImpl) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, err
		}
		for k, v := range props {
			e.context.properties[k] = v
		}
	}
	return e.context.properties, nil
}

func (e *testEnvImpl) Stop() error {
	var lastErr error
	// Stop in reverse order
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (e *testEnvImpl) GetContext() TestEnvContext {
	return e.context
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	Port      int    // Uses free port if 0
	Transport string // Defaults to "sse"
	AuthType  string // Defaults to "none"
	Host      string // Defaults to "localhost"
	// ReferencesDir is the reference corpus directory. Left unset when empty.
	ReferencesDir string
	// APIKeys are set when AuthType is "apikey".
	APIKeys []string
}

// NewTestFlags creates a configured pflag.FlagSet for testing
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterFlags(flags)

	port := 0
	transport := "sse"
	authType := "none"
	host := "localhost"

	if opts != nil {
		if opts.Port != 0 {
			port = opts.Port
		}
		if opts.Transport != "" {
			transport = opts.Transport
		}
		if opts.AuthType != "" {
			authType = opts.AuthType
		}
		if opts.Host != "" {
			host = opts.Host
		}
	}

	if port == 0 {
		port = MustGetFreePort(t)
	}

	_ = flags.Set("port", fmt.Sprintf("%d", port))
	_ = flags.Set("transport", transport)
	_ = flags.Set("auth-type", authType)
	_ = flags.Set("host", host)
	if opts != nil && opts.ReferencesDir != "" {
		_ = flags.Set("references-dir", opts.ReferencesDir)
	}
	if opts != nil {
		for _, key := range opts.APIKeys {
			_ = flags.Set("auth-api-keys", key)
		}
	}

	return flags
}

// ServerService runs the application with the given flags until stopped.
// Start blocks until the health endpoint answers.
type ServerService struct {
	flags        *pflag.FlagSet
	readyTimeout time.Duration

	cancel context.CancelFunc
	done   chan error
}

// NewServerService creates a ServerService for an SSE configured flag set.
func NewServerService(flags *pflag.FlagSet) *ServerService {
	return &ServerService{flags: flags, readyTimeout: 10 * time.Second}
}

// GetName returns the service name
func (s *ServerService) GetName() string {
	return "refqa-server"
}

// Start runs the server in the background and publishes its "base_url".
func (s *ServerService) Start() (map[string]any, error) {
	host, _ := s.flags.GetString("host")
	port, _ := s.flags.GetInt("port")
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() {
		s.done <- app.RunWithDeps(ctx, app.DefaultRunParams(), s.flags, "test")
	}()

	if err := s.waitHealthy(baseURL + "/health"); err != nil {
		_ = s.Stop()
		return nil, err
	}
	return map[string]any{"base_url": baseURL}, nil
}

// Stop shuts the server down and waits for it to exit.
func (s *ServerService) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil
	select {
	case err := <-s.done:
		return err
	case <-time.After(s.readyTimeout):
		return errors.New("server did not stop in time")
	}
}

func (s *ServerService) waitHealthy(url string) error {
	deadline := time.Now().Add(s.readyTimeout)
	for time.Now().Before(deadline) {
		select {
		case err := <-s.done:
			s.cancel()
			s.cancel = nil
			return fmt.Errorf("server exited before becoming healthy: %w", err)
		default:
		}

		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy after %s", url, s.readyTimeout)
}
