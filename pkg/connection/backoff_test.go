package connection

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			32 * time.Second,
			60 * time.Second,
			60 * time.Second,
		}

		for i, exp := range expected {
			base := b.Current()
			b.Next()
			if base != exp {
				t.Errorf("attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()

		samples := make([]time.Duration, 20)
		for i := range samples {
			samples[i] = b.Peek()
		}

		upper := time.Duration(float64(time.Second) * (1 + JitterFactor))
		allSame := true
		for i, s := range samples {
			if s < time.Second || s > upper {
				t.Errorf("sample %d: %v outside [1s, %v]", i, s, upper)
			}
			if s != samples[0] {
				allSame = false
			}
		}
		if allSame {
			t.Error("all jittered samples are identical")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()
		for range 5 {
			b.Next()
		}
		if b.Current() <= InitialBackoff {
			t.Error("backoff should have grown")
		}

		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() after reset = %v", b.Current())
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() after reset = %d", b.Attempts())
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2,
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond,
			500 * time.Millisecond,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("attempt %d: got %v, want %v", i, got, exp)
			}
		}
		if b.Attempts() != len(expected) {
			t.Errorf("Attempts() = %d", b.Attempts())
		}
	})

	t.Run("InvalidConfigFallsBack", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Multiplier: 0.5, Jitter: -1})
		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v", b.Current())
		}
		if b.multiplier != BackoffMultiplier {
			t.Errorf("multiplier = %v", b.multiplier)
		}
		if b.Peek() != InitialBackoff {
			t.Error("negative jitter should disable jitter")
		}
	})
}
