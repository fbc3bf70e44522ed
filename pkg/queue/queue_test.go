package queue

import "testing"

func TestRetryTargetRequeuesUntilMaxRetries(t *testing.T) {
	job := &Job{ID: "job-1", Type: JobTypeReminder}

	for want := 1; want < MaxRetries; want++ {
		if target := retryTarget(job); target != QueueReminders {
			t.Fatalf("attempt %d: expected %q, got %q", want, QueueReminders, target)
		}
		if job.Attempt != want {
			t.Fatalf("expected attempt %d, got %d", want, job.Attempt)
		}
	}
}

func TestRetryTargetMovesExhaustedJobToDLQ(t *testing.T) {
	job := &Job{ID: "job-1", Type: JobTypeReminder, Attempt: MaxRetries - 1}

	if target := retryTarget(job); target != QueueDLQ {
		t.Fatalf("expected %q, got %q", QueueDLQ, target)
	}
	if job.Attempt != MaxRetries {
		t.Fatalf("expected attempt %d, got %d", MaxRetries, job.Attempt)
	}
}
