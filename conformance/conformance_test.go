package conformance_test

import (
	"testing"

	"github.com/cardsim/openpgpcard/conformance"
)

func TestRunAllPassesEveryInvariantAndScenario(t *testing.T) {
	r := conformance.NewRunner()
	if err := r.RunAll(); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	summary := r.GetSummary()
	if summary.Total == 0 {
		t.Fatalf("expected results")
	}
	if summary.Failed != 0 {
		t.Fatalf("expected all checks to pass, failed: %v", summary.FailedTests)
	}
}

func TestRunCategoryRejectsUnknownName(t *testing.T) {
	r := conformance.NewRunner()
	if err := r.RunCategory("bogus"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestSummaryBreaksDownByCategory(t *testing.T) {
	r := conformance.NewRunner()
	if err := r.RunCategory("scenarios"); err != nil {
		t.Fatalf("RunCategory: %v", err)
	}
	summary := r.GetSummary()
	if summary.ByCategory["scenario"] != 6 {
		t.Fatalf("expected 6 scenario results, got %d", summary.ByCategory["scenario"])
	}
}
