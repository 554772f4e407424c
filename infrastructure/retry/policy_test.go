package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{-1, 1 * time.Second},
	}

	for _, c := range cases {
		if got := Backoff(c.attempt); got != c.want {
			t.Errorf("Backoff(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestPolicyDoSucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	p := NewPolicyWithInitialDelay[int](3, time.Millisecond)
	attempts := 0

	result, err := p.Do(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("result = %d, want 42", result)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestPolicyDoExhausted(t *testing.T) {
	t.Parallel()

	p := NewPolicyWithInitialDelay[int](2, time.Millisecond)
	attempts := 0
	wantErr := errors.New("permanent")

	_, err := p.Do(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, wantErr
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
