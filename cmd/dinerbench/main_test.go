package main

import (
	"fmt"
	"testing"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/report"
)

func TestRunExitCodeReflectsThresholdOnly(t *testing.T) {
	// 9/10 passing at a 0.90 threshold is compliant despite the failure
	tr := report.NewTracker(0.90)
	for i := 0; i < 9; i++ {
		tr.Update(fmt.Sprintf("scenario_%d", i), &conversation.TestResult{Status: conversation.StatusSuccess})
	}
	tr.Update("scenario_9", &conversation.TestResult{Status: conversation.StatusFailed})
	rep := tr.Snapshot()
	if !rep.IsCompliant {
		t.Fatalf("9/10 at threshold 0.90 should be compliant: %+v", rep)
	}

	if code := runExitCode(rep, false); code != 0 {
		t.Errorf("compliant run exited %d, want 0", code)
	}
	if code := runExitCode(rep, true); code != 0 {
		t.Errorf("compliant enforced run exited %d, want 0", code)
	}
}

func TestRunExitCodeEnforcement(t *testing.T) {
	failing := report.ComplianceReport{IsCompliant: false}

	if code := runExitCode(failing, false); code != 0 {
		t.Errorf("non-enforced failure exited %d, want 0", code)
	}
	if code := runExitCode(failing, true); code != 1 {
		t.Errorf("enforced failure exited %d, want 1", code)
	}
}
