package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"giveaway/internal/models"
)

const participantColumns = `identity, display_name, phone, stage, artifact_ref,
	sequence_number, outcome_won, outcome_tier, outcome_prize, created_at`

// GetOrCreateParticipant returns the participant for identity, creating a NEW
// record on first contact.
func (s *Store) GetOrCreateParticipant(ctx context.Context, identity string) (*models.Participant, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (identity, stage) VALUES (?, ?)
		ON CONFLICT(identity) DO NOTHING
	`, identity, models.StageNew)
	if err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return s.GetParticipant(ctx, identity)
}

// GetParticipant returns the participant for identity or ErrNotFound.
func (s *Store) GetParticipant(ctx context.Context, identity string) (*models.Participant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+` FROM participants WHERE identity = ?
	`, identity)
	return scanParticipant(row)
}

// FindCommittedByPhone returns a participant with a committed outcome whose
// phone matches, excluding the given identity. Used for duplicate detection
// across accounts. Returns nil (no error) when there is no match.
func (s *Store) FindCommittedByPhone(ctx context.Context, phone, excludeIdentity string) (*models.Participant, error) {
	if phone == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE phone = ? AND identity != ? AND outcome_won IS NOT NULL
		ORDER BY created_at LIMIT 1
	`, phone, excludeIdentity)
	p, err := scanParticipant(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// SetDisplayName persists the display name and advances the stage.
func (s *Store) SetDisplayName(ctx context.Context, identity, name string) error {
	return s.updateParticipant(ctx, identity, `
		UPDATE participants SET display_name = ?, stage = ? WHERE identity = ?
	`, name, models.StageNameSet, identity)
}

// SetPhone persists the secondary identity and advances the stage.
func (s *Store) SetPhone(ctx context.Context, identity, phone string) error {
	return s.updateParticipant(ctx, identity, `
		UPDATE participants SET phone = ?, stage = ? WHERE identity = ?
	`, phone, models.StageContactSet, identity)
}

// SetStage moves the participant to the given stage without touching other
// fields. Used for the engagement transitions, which carry no payload.
func (s *Store) SetStage(ctx context.Context, identity string, stage models.Stage) error {
	return s.updateParticipant(ctx, identity, `
		UPDATE participants SET stage = ? WHERE identity = ?
	`, stage, identity)
}

// SetArtifactRef persists the proof artifact reference and advances the stage.
func (s *Store) SetArtifactRef(ctx context.Context, identity, ref string) error {
	return s.updateParticipant(ctx, identity, `
		UPDATE participants SET artifact_ref = ?, stage = ? WHERE identity = ?
	`, ref, models.StageProofSubmitted, identity)
}

// ListParticipants returns all participants ordered by creation time. Used by
// the admin export.
func (s *Store) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+participantColumns+` FROM participants ORDER BY created_at, identity
	`)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}

func (s *Store) updateParticipant(ctx context.Context, identity, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var (
		p           models.Participant
		displayName sql.NullString
		phone       sql.NullString
		stage       string
		artifactRef sql.NullString
		seq         sql.NullInt64
		won         sql.NullBool
		tier        sql.NullString
		prize       sql.NullString
		createdAt   time.Time
	)
	err := row.Scan(&p.Identity, &displayName, &phone, &stage, &artifactRef,
		&seq, &won, &tier, &prize, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan participant: %w", err)
	}

	p.DisplayName = displayName.String
	p.Phone = phone.String
	p.Stage = models.Stage(stage)
	p.ArtifactRef = artifactRef.String
	p.SequenceNumber = seq.Int64
	p.CreatedAt = createdAt
	if won.Valid {
		p.Outcome = &models.Outcome{
			Won:   won.Bool,
			Tier:  models.PrizeTier(tier.String),
			Prize: prize.String,
		}
	}
	return &p, nil
}
