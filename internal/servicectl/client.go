package servicectl

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Logger is the minimal logging interface the package depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner executes one systemctl invocation and returns its stdout. The
// indirection exists so tests can substitute canned replies.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type execRunner struct {
	binary string
}

func (r execRunner) Run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, r.binary, args...).Output()
	if err != nil {
		return "", fmt.Errorf("servicectl: %s %s: %w", r.binary, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// UnitStatus is an aggregate snapshot of one systemd user unit.
type UnitStatus struct {
	Name          string
	Description   string
	LoadState     string
	ActiveState   string
	SubState      string
	UnitFileState string
	MainPID       int
}

// Active reports whether the unit is currently running.
func (s UnitStatus) Active() bool {
	return s.ActiveState == "active"
}

// Enabled reports whether the unit starts with the user session.
func (s UnitStatus) Enabled() bool {
	return s.UnitFileState == "enabled"
}

// statusProperties is the property set one aggregate status query asks for.
var statusProperties = []string{
	"Description", "LoadState", "ActiveState", "SubState", "UnitFileState", "MainPID",
}

// Client drives systemd user units through systemctl.
type Client struct {
	runner Runner
	logger Logger
}

// New returns a client that shells out to systemctl.
func New() *Client {
	return &Client{runner: execRunner{binary: "systemctl"}, logger: noopLogger{}}
}

// NewWithRunner returns a client over a custom runner.
func NewWithRunner(r Runner) *Client {
	return &Client{runner: r, logger: noopLogger{}}
}

// SetLogger replaces the package logger.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Show queries the named properties of a unit. The result maps property
// name to value; properties systemd did not report are absent.
func (c *Client) Show(ctx context.Context, unit string, properties ...string) (map[string]string, error) {
	args := []string{"--user", "show", "--no-page",
		"--property=" + strings.Join(properties, ","), unit}
	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	props := make(map[string]string, len(properties))
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[key] = value
	}
	return props, nil
}

// ShowProperty queries a single property. Returns ErrPropertyNotFound when
// systemd's reply does not carry it.
func (c *Client) ShowProperty(ctx context.Context, unit, property string) (string, error) {
	props, err := c.Show(ctx, unit, property)
	if err != nil {
		return "", err
	}
	value, ok := props[property]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrPropertyNotFound, property, unit)
	}
	return value, nil
}

// Status assembles an aggregate status report for a unit. A unit systemd
// does not know reports ErrUnitNotFound.
func (c *Client) Status(ctx context.Context, unit string) (UnitStatus, error) {
	props, err := c.Show(ctx, unit, statusProperties...)
	if err != nil {
		return UnitStatus{}, err
	}
	s := UnitStatus{
		Name:          unit,
		Description:   props["Description"],
		LoadState:     props["LoadState"],
		ActiveState:   props["ActiveState"],
		SubState:      props["SubState"],
		UnitFileState: props["UnitFileState"],
	}
	if pid, err := strconv.Atoi(props["MainPID"]); err == nil {
		s.MainPID = pid
	}
	if s.LoadState == "not-found" {
		return s, fmt.Errorf("%w: %s", ErrUnitNotFound, unit)
	}
	return s, nil
}

// Start starts a unit.
func (c *Client) Start(ctx context.Context, unit string) error {
	return c.verb(ctx, "start", unit)
}

// Stop stops a unit.
func (c *Client) Stop(ctx context.Context, unit string) error {
	return c.verb(ctx, "stop", unit)
}

// Restart restarts a unit.
func (c *Client) Restart(ctx context.Context, unit string) error {
	return c.verb(ctx, "restart", unit)
}

// Enable enables a unit for the user session.
func (c *Client) Enable(ctx context.Context, unit string) error {
	return c.verb(ctx, "enable", unit)
}

// Disable removes a unit from the user session.
func (c *Client) Disable(ctx context.Context, unit string) error {
	return c.verb(ctx, "disable", unit)
}

func (c *Client) verb(ctx context.Context, verb, unit string) error {
	c.logger.Info("systemctl", "verb", verb, "unit", unit)
	_, err := c.runner.Run(ctx, "--user", verb, unit)
	return err
}
