package models

import "time"

// Stage is the workflow position of a participant. Stages only move forward;
// the only way back is an administrative purge.
type Stage string

const (
	StageNew                Stage = "NEW"
	StageNameSet            Stage = "NAME_SET"
	StageContactSet         Stage = "CONTACT_SET"
	StageEngagementPending  Stage = "ENGAGEMENT_PENDING"
	StageEngagementVerified Stage = "ENGAGEMENT_VERIFIED"
	StageProofSubmitted     Stage = "PROOF_SUBMITTED"
	StageClaimed            Stage = "CLAIMED"
)

// stageOrder gives each stage a rank so transitions can be checked for
// monotonicity without encoding the full table here.
var stageOrder = map[Stage]int{
	StageNew:                0,
	StageNameSet:            1,
	StageContactSet:         2,
	StageEngagementPending:  3,
	StageEngagementVerified: 4,
	StageProofSubmitted:     5,
	StageClaimed:            6,
}

// Before reports whether s comes strictly earlier in the flow than other.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// PrizeTier identifies which prize pool an outcome came from.
type PrizeTier string

const (
	TierBig   PrizeTier = "big"
	TierSmall PrizeTier = "small"
)

// Outcome is the committed result of a claim. Once persisted it never changes.
type Outcome struct {
	Won   bool      `json:"won"`
	Tier  PrizeTier `json:"tier,omitempty"`
	Prize string    `json:"prize,omitempty"`
}

// Participant is one person moving through the giveaway flow.
// Identity is the stable primary key (e.g. a messenger user ID); Phone is the
// secondary identity used for duplicate detection across accounts.
type Participant struct {
	Identity       string    `json:"identity"`
	DisplayName    string    `json:"displayName,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Stage          Stage     `json:"stage"`
	ArtifactRef    string    `json:"artifactRef,omitempty"`
	SequenceNumber int64     `json:"sequenceNumber,omitempty"` // 0 until assigned at claim
	Outcome        *Outcome  `json:"outcome,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DailyStats holds the per-date counters the allocation engine reads.
// All three counters only ever grow within a day.
type DailyStats struct {
	Date              string `json:"date"` // YYYY-MM-DD
	ParticipantsCount int    `json:"participantsCount"`
	SmallPrizesGiven  int    `json:"smallPrizesGiven"`
	BigPrizesGiven    int    `json:"bigPrizesGiven"`
}
