package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func quick(maxRetries int) Policy {
	return Policy{MaxRetries: maxRetries, Backoff: time.Millisecond, Op: "balanceOf"}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quick(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	want := errors.New("down")
	calls := 0
	err := Do(context.Background(), quick(2), func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	cause := errors.New("unpack balanceOf")
	calls := 0
	err := Do(context.Background(), quick(5), func(context.Context) error {
		calls++
		return fmt.Errorf("asset 0x01: %w", Permanent(cause))
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, cause) || !IsPermanent(err) {
		t.Fatalf("err = %v, want permanent %v", err, cause)
	}
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) should stay nil")
	}
}

func TestDoLogsAttempts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	policy := quick(2)
	policy.Logger = zap.New(core)

	_ = Do(context.Background(), policy, func(context.Context) error {
		return errors.New("rpc timeout")
	})

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("logged %d entries, want 3", len(entries))
	}
	if entries[0].Message != "attempt failed" || entries[2].Message != "retries exhausted" {
		t.Fatalf("unexpected messages: %q, %q", entries[0].Message, entries[2].Message)
	}
	fields := entries[1].ContextMap()
	if fields["op"] != "balanceOf" || fields["attempt"] != int64(2) {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := quick(5)
	policy.Backoff = time.Hour
	err := Do(ctx, policy, func(context.Context) error {
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
