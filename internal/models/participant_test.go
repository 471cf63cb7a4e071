package models

import "testing"

func TestStageOrdering(t *testing.T) {
	ordered := []Stage{
		StageNew, StageNameSet, StageContactSet, StageEngagementPending,
		StageEngagementVerified, StageProofSubmitted, StageClaimed,
	}
	for i := 1; i < len(ordered); i++ {
		if !ordered[i-1].Before(ordered[i]) {
			t.Errorf("expected %s before %s", ordered[i-1], ordered[i])
		}
		if ordered[i].Before(ordered[i-1]) {
			t.Errorf("did not expect %s before %s", ordered[i], ordered[i-1])
		}
	}
}

func TestStageValid(t *testing.T) {
	for s := range map[Stage]bool{StageNew: true, StageClaimed: true} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if Stage("HALFWAY").Valid() {
		t.Error("unknown stage reported valid")
	}
}
