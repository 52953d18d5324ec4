// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	f := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not ready")
		}
		return nil
	}
	if err := Retry(ctx, time.Millisecond, f); err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts, got %d", attempts)
	}
}

func TestRetryTimeout(t *testing.T) {
	ctx := context.Background()

	failure := errors.New("still failing")
	attempts := 0
	f := func() error {
		attempts++
		return failure
	}
	err := RetryTimeout(ctx, time.Millisecond, 20*time.Millisecond, f)
	if !errors.Is(err, failure) {
		t.Fatalf("want the last failure after the timeout, got %v", err)
	}
	if attempts < 2 {
		t.Fatalf("want repeated attempts before the timeout, got %d", attempts)
	}
}
