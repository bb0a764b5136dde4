package pipeline

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/rpdarchive/internal/crawler"
	"github.com/nao1215/rpdarchive/internal/log"
	"github.com/nao1215/rpdarchive/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, st *State) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, st *State) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, st)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func newTestState(t *testing.T) *State {
	t.Helper()
	base, err := url.Parse("http://rarepepedirectory.com")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}
	return NewState(crawler.NewSession(base, log.Discard()), model.ModeDiscovery, time.Now())
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("expected continueOnError to default to false")
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *State) error {
				order = append(order, name)
				return nil
			}}
		}
		p := New(WithLogger(log.Discard()))
		p.AddStep(record("a"))
		p.AddSteps(record("b"), record("c"))

		st := newTestState(t)
		if err := p.Execute(context.Background(), st); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(p.StepNames(), st.Performed); diff != "" {
			t.Errorf("performed mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "fail", doFunc: func(context.Context, *State) error {
			return errors.New("boom")
		}}
		after := &mockStep{name: "after"}
		p := New(WithLogger(log.Discard()))
		p.AddSteps(failing, after)

		st := newTestState(t)
		if err := p.Execute(context.Background(), st); err == nil {
			t.Fatal("expected error")
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
		if diff := cmp.Diff([]string{"fail: boom"}, st.Summary.Errors); diff != "" {
			t.Errorf("errors mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("continues after a non-fatal error", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "fail", doFunc: func(context.Context, *State) error {
			return errors.New("boom")
		}}
		after := &mockStep{name: "after"}
		p := New(WithLogger(log.Discard()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		st := newTestState(t)
		if err := p.Execute(context.Background(), st); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected the next step to run")
		}
		if len(st.Summary.Errors) != 1 {
			t.Errorf("expected 1 recorded error, got %v", st.Summary.Errors)
		}
	})

	t.Run("fatal error stops even with continue on error", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("disk full")
		failing := &mockStep{name: "write", doFunc: func(context.Context, *State) error {
			return Fatal("write", cause)
		}}
		after := &mockStep{name: "after"}
		p := New(WithLogger(log.Discard()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		err := p.Execute(context.Background(), newTestState(t))
		if !IsFatal(err) || !errors.Is(err, cause) {
			t.Errorf("expected fatal error wrapping the cause, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
	})

	t.Run("cancelled context stops before the next step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "first", doFunc: func(context.Context, *State) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}
		p := New(WithLogger(log.Discard()), WithContinueOnError(true))
		p.AddSteps(first, second)

		if err := p.Execute(ctx, newTestState(t)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
	})
}

func TestFatal(t *testing.T) {
	t.Parallel()

	if Fatal("x", nil) != nil {
		t.Error("expected nil for nil error")
	}
	if IsFatal(errors.New("plain")) {
		t.Error("expected plain error not to be fatal")
	}
	err := Fatal("discovery_output", errors.New("read-only"))
	if err.Error() != "discovery_output: read-only" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
