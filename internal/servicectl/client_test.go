package servicectl

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRunner records invocations and plays back canned replies keyed by
// the systemctl verb.
type fakeRunner struct {
	calls   [][]string
	replies map[string]string
	err     error
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return "", f.err
	}
	for verb, reply := range f.replies {
		for _, a := range args {
			if a == verb {
				return reply, nil
			}
		}
	}
	return "", nil
}

func TestShowParsesProperties(t *testing.T) {
	f := &fakeRunner{replies: map[string]string{
		"show": "ActiveState=active\nSubState=running\nMainPID=1234\n",
	}}
	c := NewWithRunner(f)

	props, err := c.Show(context.Background(), "pipewire.service",
		"ActiveState", "SubState", "MainPID")
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if props["ActiveState"] != "active" || props["SubState"] != "running" || props["MainPID"] != "1234" {
		t.Errorf("props = %v", props)
	}

	if len(f.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(f.calls))
	}
	args := f.calls[0]
	if args[0] != "--user" || args[1] != "show" || args[2] != "--no-page" {
		t.Errorf("args = %v", args)
	}
	if !strings.HasPrefix(args[3], "--property=") || !strings.Contains(args[3], "ActiveState,SubState,MainPID") {
		t.Errorf("property arg = %q", args[3])
	}
	if args[len(args)-1] != "pipewire.service" {
		t.Errorf("unit arg = %q", args[len(args)-1])
	}
}

func TestShowPropertyAbsent(t *testing.T) {
	f := &fakeRunner{replies: map[string]string{"show": "ActiveState=active\n"}}
	c := NewWithRunner(f)

	if _, err := c.ShowProperty(context.Background(), "pipewire.service", "MainPID"); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("err = %v, want ErrPropertyNotFound", err)
	}
}

func TestStatusAggregates(t *testing.T) {
	f := &fakeRunner{replies: map[string]string{
		"show": "Description=PipeWire Multimedia Service\n" +
			"LoadState=loaded\nActiveState=active\nSubState=running\n" +
			"UnitFileState=enabled\nMainPID=987\n",
	}}
	c := NewWithRunner(f)

	s, err := c.Status(context.Background(), "pipewire.service")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !s.Active() || !s.Enabled() || s.MainPID != 987 {
		t.Errorf("status = %+v", s)
	}
	if s.Description != "PipeWire Multimedia Service" {
		t.Errorf("description = %q", s.Description)
	}
}

func TestStatusUnknownUnit(t *testing.T) {
	f := &fakeRunner{replies: map[string]string{
		"show": "LoadState=not-found\nActiveState=inactive\nSubState=dead\nMainPID=0\n",
	}}
	c := NewWithRunner(f)

	_, err := c.Status(context.Background(), "no-such.service")
	if !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("err = %v, want ErrUnitNotFound", err)
	}
}

func TestLifecycleVerbs(t *testing.T) {
	f := &fakeRunner{}
	c := NewWithRunner(f)
	ctx := context.Background()

	steps := []struct {
		name string
		call func() error
		verb string
	}{
		{"start", func() error { return c.Start(ctx, "pipewire.service") }, "start"},
		{"stop", func() error { return c.Stop(ctx, "pipewire.service") }, "stop"},
		{"restart", func() error { return c.Restart(ctx, "pipewire.service") }, "restart"},
		{"enable", func() error { return c.Enable(ctx, "pipewire.service") }, "enable"},
		{"disable", func() error { return c.Disable(ctx, "pipewire.service") }, "disable"},
	}
	for _, step := range steps {
		if err := step.call(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
	}
	if len(f.calls) != len(steps) {
		t.Fatalf("calls = %d, want %d", len(f.calls), len(steps))
	}
	for i, step := range steps {
		args := f.calls[i]
		if args[0] != "--user" || args[1] != step.verb || args[2] != "pipewire.service" {
			t.Errorf("%s args = %v", step.name, args)
		}
	}
}

func TestRunnerErrorPropagates(t *testing.T) {
	failure := errors.New("boom")
	c := NewWithRunner(&fakeRunner{err: failure})

	if _, err := c.Show(context.Background(), "pipewire.service", "ActiveState"); !errors.Is(err, failure) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if err := c.Restart(context.Background(), "pipewire.service"); !errors.Is(err, failure) {
		t.Errorf("restart err = %v, want wrapped boom", err)
	}
}
