package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJobIDDeterministic(t *testing.T) {
	id := uuid.MustParse("9b2e28a2-6f4e-4f9f-8c3a-1b7c3a9d0e11")
	first := JobID(id)
	second := JobID(id)
	if first != second {
		t.Fatalf("JobID not deterministic: %q vs %q", first, second)
	}
	if first != "ocr-9b2e28a2-6f4e-4f9f-8c3a-1b7c3a9d0e11" {
		t.Fatalf("JobID = %q", first)
	}
	if JobID(uuid.New()) == first {
		t.Fatal("distinct manuscripts produced the same job id")
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 5 * time.Second
	max := 10 * time.Minute

	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
	}
	for i, w := range want {
		if got := Backoff(base, max, i+1); got != w {
			t.Fatalf("Backoff(attempt %d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoffCapped(t *testing.T) {
	base := 5 * time.Second
	max := 10 * time.Minute
	if got := Backoff(base, max, 50); got != max {
		t.Fatalf("Backoff(attempt 50) = %v, want cap %v", got, max)
	}
}

func TestBackoffClampsBadAttempt(t *testing.T) {
	base := time.Second
	if got := Backoff(base, time.Minute, 0); got != base {
		t.Fatalf("Backoff(attempt 0) = %v, want %v", got, base)
	}
	if got := Backoff(base, time.Minute, -3); got != base {
		t.Fatalf("Backoff(attempt -3) = %v, want %v", got, base)
	}
}
