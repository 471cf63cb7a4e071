package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"giveaway/internal/store"
)

// ExportParticipantsCSV writes every participant to w as CSV, one row per
// identity. Shared by the admin endpoint and the CLI export command.
func ExportParticipantsCSV(ctx context.Context, st *store.Store, w io.Writer) error {
	participants, err := st.ListParticipants(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"identity", "name", "phone", "stage", "sequence", "won", "tier", "prize", "artifact", "created_at"}); err != nil {
		return err
	}
	for _, p := range participants {
		row := []string{
			p.Identity, p.DisplayName, p.Phone, string(p.Stage),
			"", "", "", "",
			p.ArtifactRef, p.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if p.SequenceNumber > 0 {
			row[4] = strconv.FormatInt(p.SequenceNumber, 10)
		}
		if p.Outcome != nil {
			row[5] = strconv.FormatBool(p.Outcome.Won)
			row[6] = string(p.Outcome.Tier)
			row[7] = p.Outcome.Prize
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
