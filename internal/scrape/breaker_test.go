package scrape

import "testing"

func TestBreakerTripsAtThreshold(t *testing.T) {
	b := NewBreaker(3)

	b.RecordFatal()
	b.RecordFatal()
	if !b.Allow() {
		t.Fatal("breaker tripped before threshold")
	}

	b.RecordFatal()
	if b.Allow() {
		t.Fatal("breaker did not trip at threshold")
	}
	if !b.Tripped() {
		t.Error("Tripped should report open breaker")
	}
}

func TestBreakerHealthyResetsRun(t *testing.T) {
	b := NewBreaker(2)

	b.RecordFatal()
	b.RecordHealthy()
	b.RecordFatal()
	if !b.Allow() {
		t.Error("non-consecutive failures must not trip the breaker")
	}
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(1)

	b.RecordFatal()
	if b.Allow() {
		t.Fatal("breaker should be open")
	}

	b.Reset()
	if !b.Allow() {
		t.Error("Reset should close the breaker")
	}
}

func TestBreakerDisabled(t *testing.T) {
	b := NewBreaker(0)
	for i := 0; i < 10; i++ {
		b.RecordFatal()
	}
	if !b.Allow() {
		t.Error("zero threshold must never trip")
	}
}
