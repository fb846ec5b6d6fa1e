package clock

import (
	"testing"
	"time"
)

func TestSystem_NowAdvances(t *testing.T) {
	c := NewSystem()
	a := c.Now()
	time.Sleep(time.Millisecond)
	b := c.Now()

	if !b.After(a) {
		t.Errorf("expected time to advance, got %v then %v", a, b)
	}
}

func TestFake_AdvanceAndSet(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)

	if !f.Now().Equal(start) {
		t.Errorf("expected %v, got %v", start, f.Now())
	}

	f.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !f.Now().Equal(want) {
		t.Errorf("expected %v, got %v", want, f.Now())
	}

	abs := start.Add(time.Hour)
	f.Set(abs)
	if !f.Now().Equal(abs) {
		t.Errorf("expected %v, got %v", abs, f.Now())
	}
}
