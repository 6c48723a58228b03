package clock

import (
	"testing"
	"time"
)

func TestManualTicker(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewManual(start)
	ticker := m.NewTicker(5 * time.Minute)
	m.WaitForTickers(1)

	m.Advance(4 * time.Minute)
	select {
	case <-ticker.C:
		t.Fatalf("unexpected tick before the interval")
	default:
	}

	m.Advance(time.Minute)
	select {
	case at := <-ticker.C:
		if !at.Equal(start.Add(5 * time.Minute)) {
			t.Fatalf("unexpected tick time %v", at)
		}
	default:
		t.Fatalf("expected a tick after the interval")
	}

	m.Advance(time.Hour)
	m.Advance(time.Hour)
	if len(ticker.C) != 1 {
		t.Fatalf("expected missed ticks dropped, got %d queued", len(ticker.C))
	}
	<-ticker.C

	ticker.Stop()
	m.Advance(time.Hour)
	select {
	case <-ticker.C:
		t.Fatalf("unexpected tick after Stop")
	default:
	}
}

func TestSystemClockIsUTC(t *testing.T) {
	t.Parallel()

	if loc := NewSystem().Now().Location(); loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
}
