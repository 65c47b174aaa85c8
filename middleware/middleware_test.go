package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Spiderbuttons/autosort/id"
	mw "github.com/Spiderbuttons/autosort/middleware"
)

func newTestOp() *mw.Operation {
	return &mw.Operation{
		SortID:     id.NewSortID(),
		Site:       "barn",
		Containers: 3,
	}
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) mw.Middleware {
		return func(ctx context.Context, _ *mw.Operation, next mw.Handler) error {
			order = append(order, name+":before")
			err := next(ctx)
			order = append(order, name+":after")
			return err
		}
	}

	chain := mw.Chain(mk("outer"), mk("inner"))
	err := chain(context.Background(), newTestOp(), func(_ context.Context) error {
		order = append(order, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := mw.Chain()
	called := false
	err := chain(context.Background(), newTestOp(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("empty chain should call the handler directly, err=%v called=%v", err, called)
	}
}

func TestChain_ErrorPropagates(t *testing.T) {
	sentinel := errors.New("routing exploded")
	chain := mw.Chain(mw.Logging(slog.Default()))
	err := chain(context.Background(), newTestOp(), func(_ context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Recover
// ---------------------------------------------------------------------------

func TestRecover_ConvertsPanicToError(t *testing.T) {
	m := mw.Recover(slog.Default())
	err := m(context.Background(), newTestOp(), func(_ context.Context) error {
		panic("broken container contract")
	})
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

func TestRecover_PassThrough(t *testing.T) {
	m := mw.Recover(slog.Default())
	err := m(context.Background(), newTestOp(), func(_ context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Timeout
// ---------------------------------------------------------------------------

func TestTimeout_SetsDeadline(t *testing.T) {
	op := newTestOp()
	op.Timeout = time.Minute

	m := mw.Timeout(slog.Default())
	err := m(context.Background(), op, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the handler context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeout_ZeroMeansNoDeadline(t *testing.T) {
	m := mw.Timeout(slog.Default())
	err := m(context.Background(), newTestOp(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("expected no deadline when Timeout is zero")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeout_Expires(t *testing.T) {
	op := newTestOp()
	op.Timeout = 10 * time.Millisecond

	m := mw.Timeout(slog.Default())
	err := m(context.Background(), op, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}
