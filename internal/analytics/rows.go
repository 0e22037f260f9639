package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcastellanos/fotoescolar-backend/internal/shares"
)

// AccessEventRow is one gallery access streamed to BigQuery. The table keeps
// every validation attempt, successful or denied, for per-event reporting.
type AccessEventRow struct {
	ID           string    `bigquery:"id"`
	ShareTokenID string    `bigquery:"share_token_id"`
	EventID      string    `bigquery:"event_id"`
	Outcome      string    `bigquery:"outcome"`
	PhotoCount   int       `bigquery:"photo_count"`
	OccurredAt   time.Time `bigquery:"occurred_at"`
}

func rowFromRecord(record shares.AccessRecord) AccessEventRow {
	occurredAt := record.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return AccessEventRow{
		ID:           uuid.NewString(),
		ShareTokenID: record.ShareTokenID.String(),
		EventID:      record.EventID.String(),
		Outcome:      record.Outcome,
		PhotoCount:   record.PhotoCount,
		OccurredAt:   occurredAt.UTC(),
	}
}
