package store

import (
	"context"
	"fmt"
	"time"

	"giveaway/internal/models"
)

// DateKey formats a time as the daily_stats primary key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// GetDailyStats returns the counters for date, creating the row lazily.
func (s *Store) GetDailyStats(ctx context.Context, date string) (*models.DailyStats, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (date) VALUES (?) ON CONFLICT(date) DO NOTHING
	`, date); err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}

	var st models.DailyStats
	err := s.db.QueryRowContext(ctx, `
		SELECT date, participants_count, small_prizes_given, big_prizes_given
		FROM daily_stats WHERE date = ?
	`, date).Scan(&st.Date, &st.ParticipantsCount, &st.SmallPrizesGiven, &st.BigPrizesGiven)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	return &st, nil
}

// ClaimCommit describes the outcome to commit for one participant.
// BigCapacity/SmallCapacity are the configured ceilings re-validated inside
// the transaction; negative means unlimited.
type ClaimCommit struct {
	Identity      string
	Date          string
	Outcome       models.Outcome
	BigCapacity   int
	SmallCapacity int
}

// CommitClaim atomically settles one claim: it re-validates tier capacity,
// increments the daily counters, assigns the next sequence number, and writes
// the outcome, all in a single transaction.
//
// Returns ErrCapacityExhausted (nothing committed) when the decided tier is
// out of stock, and ErrOutcomeCommitted when the participant already has an
// outcome. Guarded UPDATEs make both checks race-free: a concurrent claim
// that got there first flips the affected-row count to zero and rolls us
// back.
func (s *Store) CommitClaim(ctx context.Context, c ClaimCommit) (seq int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO daily_stats (date) VALUES (?) ON CONFLICT(date) DO NOTHING
	`, c.Date); err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}

	// Counter update with in-transaction capacity check. The WHERE clause is
	// the oversell guard: zero affected rows means another claim consumed
	// the last unit after our snapshot was taken.
	query, args := counterUpdate(c)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	if n == 0 {
		return 0, ErrCapacityExhausted
	}

	// Sequence numbers are handed out here, at claim time, so a number is
	// only ever burned by a settled claim.
	if _, err := tx.ExecContext(ctx, `
		UPDATE sequence_counter SET value = value + 1 WHERE id = 1
	`); err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `
		SELECT value FROM sequence_counter WHERE id = 1
	`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}

	var tier, prize any
	if c.Outcome.Won {
		tier, prize = string(c.Outcome.Tier), c.Outcome.Prize
	}
	resOutcome, err := tx.ExecContext(ctx, `
		UPDATE participants
		SET outcome_won = ?, outcome_tier = ?, outcome_prize = ?,
		    sequence_number = ?, stage = ?
		WHERE identity = ? AND outcome_won IS NULL
	`, c.Outcome.Won, tier, prize, seq, models.StageClaimed, c.Identity)
	if err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	n, err = resOutcome.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	if n == 0 {
		// Outcome landed through another path; roll everything back so the
		// counters stay consistent with the single committed outcome.
		return 0, ErrOutcomeCommitted
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}
	return seq, nil
}

// counterUpdate builds the guarded daily_stats increment for the commit.
// Finite tiers get a capacity predicate; unlimited tiers and losses only
// bump the participant counter.
func counterUpdate(c ClaimCommit) (string, []any) {
	switch {
	case c.Outcome.Won && c.Outcome.Tier == models.TierBig && c.BigCapacity >= 0:
		return `UPDATE daily_stats
			SET big_prizes_given = big_prizes_given + 1,
			    participants_count = participants_count + 1
			WHERE date = ? AND big_prizes_given < ?`, []any{c.Date, c.BigCapacity}
	case c.Outcome.Won && c.Outcome.Tier == models.TierBig:
		return `UPDATE daily_stats
			SET big_prizes_given = big_prizes_given + 1,
			    participants_count = participants_count + 1
			WHERE date = ?`, []any{c.Date}
	case c.Outcome.Won && c.Outcome.Tier == models.TierSmall && c.SmallCapacity >= 0:
		return `UPDATE daily_stats
			SET small_prizes_given = small_prizes_given + 1,
			    participants_count = participants_count + 1
			WHERE date = ? AND small_prizes_given < ?`, []any{c.Date, c.SmallCapacity}
	case c.Outcome.Won && c.Outcome.Tier == models.TierSmall:
		return `UPDATE daily_stats
			SET small_prizes_given = small_prizes_given + 1,
			    participants_count = participants_count + 1
			WHERE date = ?`, []any{c.Date}
	default:
		return `UPDATE daily_stats
			SET participants_count = participants_count + 1
			WHERE date = ?`, []any{c.Date}
	}
}
