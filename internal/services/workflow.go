package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/logger"

	"giveaway/internal/allocation"
	"giveaway/internal/config"
	"giveaway/internal/models"
	"giveaway/internal/store"
)

// WorkflowService drives participants through the giveaway flow and settles
// claims through the allocation engine. It holds no per-participant state of
// its own; everything durable lives in the store.
type WorkflowService struct {
	store     *store.Store
	engine    *allocation.Engine
	cfg       *config.Config
	verifier  EngagementVerifier
	artifacts ArtifactStore
	notifier  OperatorNotifier

	// Now is the clock used for window progress and stats dates. Replace in
	// tests to pin the window position.
	Now func() time.Time

	// rng is the only source of nondeterminism in claim settlement. The
	// mutex serializes rolls; rand.Rand is not goroutine-safe.
	randMu sync.Mutex
	rng    *rand.Rand
}

// NewWorkflowService wires the workflow. src seeds the allocation roll; pass
// nil for a crypto-seeded source, or a fixed seed for deterministic tests.
func NewWorkflowService(st *store.Store, eng *allocation.Engine, cfg *config.Config,
	verifier EngagementVerifier, artifacts ArtifactStore, notifier OperatorNotifier,
	src rand.Source) *WorkflowService {
	if src == nil {
		src = rand.NewSource(allocation.NewSeed())
	}
	return &WorkflowService{
		store:     st,
		engine:    eng,
		cfg:       cfg,
		verifier:  verifier,
		artifacts: artifacts,
		notifier:  notifier,
		Now:       time.Now,
		rng:       rand.New(src),
	}
}

// Start registers first contact. Calling it again is harmless and returns the
// participant wherever they currently are in the flow.
func (w *WorkflowService) Start(ctx context.Context, identity string) (*models.Participant, error) {
	if identity == "" {
		return nil, validationf("identity must not be empty")
	}
	p, err := w.store.GetOrCreateParticipant(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return p, nil
}

// SetName records the display name and advances NEW -> NAME_SET.
func (w *WorkflowService) SetName(ctx context.Context, identity, name string) error {
	p, err := w.store.GetParticipant(ctx, identity)
	if err != nil {
		return err
	}
	if p.Stage != models.StageNew {
		return stateViolation(models.StageNew, p.Stage)
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return validationf("name must be between 2 and 100 characters")
	}
	return w.store.SetDisplayName(ctx, identity, name)
}

// SetContact records the phone number and advances NAME_SET -> CONTACT_SET.
// structured marks a contact shared through the transport (already
// canonical); free-text input must carry 10-15 digits.
func (w *WorkflowService) SetContact(ctx context.Context, identity, phone string, structured bool) error {
	p, err := w.store.GetParticipant(ctx, identity)
	if err != nil {
		return err
	}
	if p.Stage != models.StageNameSet {
		return stateViolation(models.StageNameSet, p.Stage)
	}
	if !structured {
		if n := countDigits(phone); n < 10 || n > 15 {
			return validationf("phone must contain between 10 and 15 digits")
		}
	}
	return w.store.SetPhone(ctx, identity, phone)
}

// CheckEngagement asks the external verifier whether the participant has
// completed the required engagements. The first call advances CONTACT_SET ->
// ENGAGEMENT_PENDING; a confirmed check advances to ENGAGEMENT_VERIFIED.
// A denied or failed check leaves the participant at ENGAGEMENT_PENDING so
// they can retry. Once verified, repeat checks report verified and leave the
// stage alone.
func (w *WorkflowService) CheckEngagement(ctx context.Context, identity string) (bool, error) {
	p, err := w.store.GetParticipant(ctx, identity)
	if err != nil {
		return false, err
	}
	switch p.Stage {
	case models.StageContactSet:
		if err := w.store.SetStage(ctx, identity, models.StageEngagementPending); err != nil {
			return false, err
		}
	case models.StageEngagementPending:
		// retry
	case models.StageEngagementVerified, models.StageProofSubmitted, models.StageClaimed:
		// Already verified; a repeat check is harmless and stays affirmative.
		return true, nil
	default:
		return false, stateViolation(models.StageContactSet, p.Stage)
	}

	verified, err := w.verifier.VerifyEngagement(ctx, identity)
	if err != nil {
		// Degrade per policy: the verifier implementation decides whether an
		// unreachable backend counts as verified. Either way the flow keeps
		// going; an unverified participant is simply reprompted.
		logger.Warningf("engagement check for %s degraded: %v", identity, err)
	}
	if !verified {
		return false, nil
	}
	if err := w.store.SetStage(ctx, identity, models.StageEngagementVerified); err != nil {
		return false, err
	}
	return true, nil
}

// SubmitProof stores the uploaded proof image and advances
// ENGAGEMENT_VERIFIED -> PROOF_SUBMITTED. The operator notification is best
// effort and never blocks the transition.
func (w *WorkflowService) SubmitProof(ctx context.Context, identity string, payload []byte) error {
	p, err := w.store.GetParticipant(ctx, identity)
	if err != nil {
		return err
	}
	if p.Stage != models.StageEngagementVerified {
		return stateViolation(models.StageEngagementVerified, p.Stage)
	}
	if len(payload) == 0 {
		return validationf("proof image is empty")
	}
	if kind := http.DetectContentType(payload); len(kind) < 6 || kind[:6] != "image/" {
		return validationf("proof must be an image, got %s", kind)
	}

	ref, err := w.artifacts.StoreProofArtifact(ctx, identity, payload)
	if err != nil {
		return fmt.Errorf("submit proof: %w", err)
	}
	if err := w.store.SetArtifactRef(ctx, identity, ref); err != nil {
		return err
	}

	if w.notifier != nil {
		if snapshot, err := w.store.GetParticipant(ctx, identity); err == nil {
			w.notifier.NotifyOperator(ctx, snapshot)
		}
	}
	return nil
}

// ClaimResult is what a participant sees at the end of the flow.
type ClaimResult struct {
	SequenceNumber int64          `json:"sequenceNumber"`
	Outcome        models.Outcome `json:"outcome"`
	// Replayed is true when the result was committed earlier (repeat claim,
	// or a duplicate phone under the echo policy) and no new roll happened.
	Replayed bool `json:"replayed"`
}

// Claim settles the terminal transition PROOF_SUBMITTED -> CLAIMED.
//
// Order of business: replay an already-committed outcome, enforce the step
// order, detect a duplicate phone, then roll the allocation engine once and
// commit outcome, sequence
// number, and counters in a single store transaction. A lost capacity race
// re-settles the claim from the unlimited small tier, or as a loss when the
// small tier is finite.
func (w *WorkflowService) Claim(ctx context.Context, identity string) (*ClaimResult, error) {
	p, err := w.store.GetParticipant(ctx, identity)
	if err != nil {
		return nil, err
	}

	// Repeat claim: hand back the committed result verbatim, no new roll.
	if p.Outcome != nil {
		return &ClaimResult{SequenceNumber: p.SequenceNumber, Outcome: *p.Outcome, Replayed: true}, nil
	}

	if p.Stage != models.StageProofSubmitted {
		return nil, stateViolation(models.StageProofSubmitted, p.Stage)
	}

	// Duplicate detection across identities by phone.
	if prior, err := w.store.FindCommittedByPhone(ctx, p.Phone, identity); err != nil {
		return nil, err
	} else if prior != nil {
		if w.cfg.DuplicatePolicy() == config.DuplicateBlock {
			return nil, ErrDuplicateContact
		}
		logger.Infof("claim by %s echoes committed result of %s (shared phone)", identity, prior.Identity)
		return &ClaimResult{SequenceNumber: prior.SequenceNumber, Outcome: *prior.Outcome, Replayed: true}, nil
	}

	now := w.Now()
	date := store.DateKey(now)
	stats, err := w.store.GetDailyStats(ctx, date)
	if err != nil {
		return nil, err
	}

	counters := allocation.Counters{BigGiven: stats.BigPrizesGiven, SmallGiven: stats.SmallPrizesGiven}
	decision := w.decide(counters, w.cfg.WindowProgress(now))

	seq, err := w.commit(ctx, identity, date, decision)
	if errors.Is(err, store.ErrCapacityExhausted) {
		// Another claim took the last unit between snapshot and commit.
		// Settle from the fallback tier; a loss cannot race.
		fallback, ok := w.fallback()
		if !ok {
			fallback = allocation.Decision{}
		}
		logger.Infof("claim by %s lost capacity race, re-settled as %+v", identity, fallback)
		decision = fallback
		seq, err = w.commit(ctx, identity, date, decision)
	}
	if errors.Is(err, store.ErrOutcomeCommitted) {
		// A concurrent claim for the same identity won; replay it.
		committed, getErr := w.store.GetParticipant(ctx, identity)
		if getErr != nil {
			return nil, getErr
		}
		return &ClaimResult{SequenceNumber: committed.SequenceNumber, Outcome: *committed.Outcome, Replayed: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim not committed: %w", err)
	}

	return &ClaimResult{
		SequenceNumber: seq,
		Outcome:        models.Outcome{Won: decision.Won, Tier: decision.Tier, Prize: decision.Prize},
	}, nil
}

func (w *WorkflowService) commit(ctx context.Context, identity, date string, d allocation.Decision) (int64, error) {
	return w.store.CommitClaim(ctx, store.ClaimCommit{
		Identity:      identity,
		Date:          date,
		Outcome:       models.Outcome{Won: d.Won, Tier: d.Tier, Prize: d.Prize},
		BigCapacity:   w.engine.Big.Capacity,
		SmallCapacity: w.engine.Small.Capacity,
	})
}

func (w *WorkflowService) decide(c allocation.Counters, progress float64) allocation.Decision {
	w.randMu.Lock()
	defer w.randMu.Unlock()
	return w.engine.Decide(c, progress, w.rng)
}

func (w *WorkflowService) fallback() (allocation.Decision, bool) {
	w.randMu.Lock()
	defer w.randMu.Unlock()
	return w.engine.SmallFallback(w.rng)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
