package domain

import "testing"

// TestImageJobStatusTransitions verifies the legal worker-driven edges of the
// image job state machine.
func TestImageJobStatusTransitions(t *testing.T) {
	testCases := []struct {
		name string
		from ImageJobStatus
		to   ImageJobStatus
		want bool
	}{
		{"pending to processing", ImageJobPending, ImageJobProcessing, true},
		{"pending to failed", ImageJobPending, ImageJobFailed, true},
		{"pending to completed skips processing", ImageJobPending, ImageJobCompleted, false},
		{"processing to completed", ImageJobProcessing, ImageJobCompleted, true},
		{"processing to failed", ImageJobProcessing, ImageJobFailed, true},
		{"processing back to pending", ImageJobProcessing, ImageJobPending, false},
		{"completed is terminal", ImageJobCompleted, ImageJobProcessing, false},
		{"failed to pending needs retry", ImageJobFailed, ImageJobPending, false},
		{"failed is terminal for workers", ImageJobFailed, ImageJobProcessing, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestImageJobStatusIsTerminal(t *testing.T) {
	if ImageJobPending.IsTerminal() || ImageJobProcessing.IsTerminal() {
		t.Error("PENDING and PROCESSING must not be terminal")
	}
	if !ImageJobCompleted.IsTerminal() || !ImageJobFailed.IsTerminal() {
		t.Error("COMPLETED and FAILED must be terminal")
	}
}
