package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"nil", nil, false, false},
		{"context cancelled", context.Canceled, false, false},
		{"deadline exceeded", context.DeadlineExceeded, false, false},
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"connection closed", nats.ErrConnectionClosed, true, true},
		{"disconnected", nats.ErrDisconnected, true, true},
		{"unknown", errors.New("bad subject"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := classifyNATSError(tc.err)
			if class.Retryable != tc.retryable || class.RecordFailure != tc.recordFailure {
				t.Fatalf("classifyNATSError(%v) = %+v, want retryable=%v record=%v",
					tc.err, class, tc.retryable, tc.recordFailure)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if got := wrapTemporaryIfNeeded(nil); got != nil {
		t.Fatalf("wrapTemporaryIfNeeded(nil) = %v", got)
	}

	wrapped := wrapTemporaryIfNeeded(nats.ErrTimeout)
	if !domain.IsKind(wrapped, domain.ErrTemporary) {
		t.Fatalf("retryable error not marked temporary: %v", wrapped)
	}
	if !errors.Is(wrapped, nats.ErrTimeout) {
		t.Fatalf("wrapping lost the cause: %v", wrapped)
	}

	// Already-classified errors pass through unchanged.
	if again := wrapTemporaryIfNeeded(wrapped); again != wrapped {
		t.Fatalf("temporary error was re-wrapped: %v", again)
	}

	plain := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(plain); got != plain {
		t.Fatalf("non-retryable error was wrapped: %v", got)
	}
}
