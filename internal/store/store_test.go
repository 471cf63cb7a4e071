package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway/internal/models"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}
}

func TestGetOrCreateParticipant(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p, err := s.GetOrCreateParticipant(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.Identity)
	assert.Equal(t, models.StageNew, p.Stage)
	assert.Nil(t, p.Outcome)

	// Second call returns the same row, not a fresh one.
	require.NoError(t, s.SetDisplayName(ctx, "user-1", "Alice"))
	again, err := s.GetOrCreateParticipant(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.DisplayName)
	assert.Equal(t, models.StageNameSet, again.Stage)
}

func TestGetParticipant_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetParticipant(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStageUpdates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateParticipant(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, s.SetDisplayName(ctx, "user-1", "Alice"))
	require.NoError(t, s.SetPhone(ctx, "user-1", "+79991112233"))
	require.NoError(t, s.SetStage(ctx, "user-1", models.StageEngagementPending))
	require.NoError(t, s.SetStage(ctx, "user-1", models.StageEngagementVerified))
	require.NoError(t, s.SetArtifactRef(ctx, "user-1", "ref-1.jpg"))

	p, err := s.GetParticipant(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, "+79991112233", p.Phone)
	assert.Equal(t, "ref-1.jpg", p.ArtifactRef)
	assert.Equal(t, models.StageProofSubmitted, p.Stage)
}

func TestUpdateMissingParticipant(t *testing.T) {
	s := createTestStore(t)
	err := s.SetDisplayName(context.Background(), "ghost", "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindCommittedByPhone(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	setupClaimed := func(identity, phone string) {
		_, err := s.GetOrCreateParticipant(ctx, identity)
		require.NoError(t, err)
		require.NoError(t, s.SetDisplayName(ctx, identity, "Name"))
		require.NoError(t, s.SetPhone(ctx, identity, phone))
		_, err = s.CommitClaim(ctx, ClaimCommit{
			Identity:      identity,
			Date:          "2026-01-10",
			Outcome:       models.Outcome{Won: true, Tier: models.TierSmall, Prize: "Keychain"},
			BigCapacity:   5,
			SmallCapacity: -1,
		})
		require.NoError(t, err)
	}
	setupClaimed("user-1", "+79991112233")

	// Uncommitted participant with the same phone does not match.
	_, err := s.GetOrCreateParticipant(ctx, "user-2")
	require.NoError(t, err)
	require.NoError(t, s.SetDisplayName(ctx, "user-2", "Name"))
	require.NoError(t, s.SetPhone(ctx, "user-2", "+79991112233"))

	match, err := s.FindCommittedByPhone(ctx, "+79991112233", "user-2")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "user-1", match.Identity)

	// The committed participant themselves is excluded.
	match, err = s.FindCommittedByPhone(ctx, "+79991112233", "user-1")
	require.NoError(t, err)
	assert.Nil(t, match)

	// No match for an unknown phone or an empty one.
	match, err = s.FindCommittedByPhone(ctx, "+70000000000", "user-2")
	require.NoError(t, err)
	assert.Nil(t, match)

	match, err = s.FindCommittedByPhone(ctx, "", "user-2")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestPurge(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateParticipant(ctx, "user-1")
	require.NoError(t, err)
	_, err = s.CommitClaim(ctx, ClaimCommit{
		Identity:      "user-1",
		Date:          "2026-01-10",
		Outcome:       models.Outcome{Won: true, Tier: models.TierSmall, Prize: "Keychain"},
		SmallCapacity: -1,
	})
	require.NoError(t, err)

	require.NoError(t, s.Purge(ctx))

	_, err = s.GetParticipant(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := s.GetDailyStats(ctx, "2026-01-10")
	require.NoError(t, err)
	assert.Zero(t, stats.ParticipantsCount)
	assert.Zero(t, stats.SmallPrizesGiven)

	// Sequence numbering restarts after a purge.
	_, err = s.GetOrCreateParticipant(ctx, "user-2")
	require.NoError(t, err)
	seq, err := s.CommitClaim(ctx, ClaimCommit{
		Identity:      "user-2",
		Date:          "2026-01-10",
		Outcome:       models.Outcome{},
		SmallCapacity: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}
