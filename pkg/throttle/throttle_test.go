package throttle

import (
	"testing"
	"time"
)

func TestNew_IntervalFromCountAndPeriod(t *testing.T) {
	l := New(192, 4096*time.Millisecond)
	want := 4096 * time.Millisecond / 192
	if l.Interval() != want {
		t.Fatalf("Interval = %v, want %v", l.Interval(), want)
	}
}

func TestLimiter_AdmitsOnePerInterval(t *testing.T) {
	l := Every(20 * time.Millisecond)
	start := time.Unix(1700000000, 0)

	// A 1000 Hz input device over 200ms.
	admitted := 0
	for i := 0; i < 200; i++ {
		if l.AllowAt(start.Add(time.Duration(i) * time.Millisecond)) {
			admitted++
		}
	}
	if admitted != 10 {
		t.Fatalf("admitted = %d, want 10", admitted)
	}
}

func TestLimiter_SlowInputAlwaysAdmitted(t *testing.T) {
	l := Every(20 * time.Millisecond)
	start := time.Unix(1700000000, 0)
	for i := 0; i < 10; i++ {
		if !l.AllowAt(start.Add(time.Duration(i) * 50 * time.Millisecond)) {
			t.Fatalf("event %d rejected", i)
		}
	}
}

func TestLimiter_ForceStartsNewInterval(t *testing.T) {
	l := Every(20 * time.Millisecond)
	start := time.Unix(1700000000, 0)

	if !l.AllowAt(start) {
		t.Fatal("first event rejected")
	}
	l.ForceAt(start.Add(5 * time.Millisecond))
	if l.AllowAt(start.Add(20 * time.Millisecond)) {
		t.Fatal("event inside the forced interval admitted")
	}
	if !l.AllowAt(start.Add(25 * time.Millisecond)) {
		t.Fatal("event after the forced interval rejected")
	}
}

func TestLimiter_ZeroIntervalAdmitsAll(t *testing.T) {
	l := New(0, 0)
	now := time.Now()
	for i := 0; i < 100; i++ {
		if !l.AllowAt(now) {
			t.Fatal("zero interval rejected an event")
		}
	}
}
