package backoff

import (
	"testing"
	"time"
)

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: 1 * time.Second, Factor: 2.0}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second},
		{10, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.expected {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestDelayJitterStaysBounded(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2.0, Jitter: 0.5}

	for attempt := 0; attempt < 8; attempt++ {
		base := Policy{Initial: p.Initial, Max: p.Max, Factor: p.Factor}.Delay(attempt)
		for i := 0; i < 50; i++ {
			d := p.Delay(attempt)
			lo := time.Duration(float64(base) * 0.5)
			hi := time.Duration(float64(base) * 1.5)
			if d < lo || d > hi {
				t.Fatalf("Delay(%d) = %v outside jitter bounds [%v, %v]", attempt, d, lo, hi)
			}
		}
	}
}

func TestAfterDisabled(t *testing.T) {
	if ch := After(0); ch != nil {
		t.Error("After(0) should return a nil channel")
	}
	if ch := After(-time.Second); ch != nil {
		t.Error("After(negative) should return a nil channel")
	}

	select {
	case <-After(time.Millisecond):
	case <-time.After(time.Second):
		t.Error("After(1ms) never fired")
	}
}
