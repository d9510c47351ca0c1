package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-orderflow/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	outboxStatusPending    = "pending"
	outboxStatusProcessing = "processing"
	outboxStatusDelivered  = "delivered"
)

// OutboxStore is the durable core.NotificationOutbox. Claims flip
// pending rows to processing inside one statement, so two dispatcher
// passes never pick up the same entry.
type OutboxStore struct {
	db   *bun.DB
	repo repository.Repository[*notificationOutboxRecord]
}

func NewOutboxStore(db *bun.DB) (*OutboxStore, error) {
	if db == nil {
		return nil, storeInternal("sqlstore: bun db is required", nil)
	}
	repo := repository.NewRepository[*notificationOutboxRecord](db, notificationOutboxHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, storeInternal("sqlstore: invalid outbox repository wiring", map[string]any{"cause": err.Error()})
		}
	}
	return &OutboxStore{db: db, repo: repo}, nil
}

func (s *OutboxStore) Enqueue(ctx context.Context, note core.Notification) error {
	if s == nil || s.repo == nil {
		return storeInternal("sqlstore: outbox store is not configured", nil)
	}
	if strings.TrimSpace(note.ID) == "" {
		note.ID = uuid.NewString()
	}
	if strings.TrimSpace(string(note.Kind)) == "" {
		return storeBadInput("sqlstore: notification kind is required", nil)
	}
	if strings.TrimSpace(note.RecipientKey) == "" {
		return storeBadInput("sqlstore: recipient key is required", nil)
	}

	now := time.Now().UTC()
	createdAt := note.CreatedAt.UTC()
	if note.CreatedAt.IsZero() {
		createdAt = now
	}
	record := &notificationOutboxRecord{
		ID:           strings.TrimSpace(note.ID),
		Recipient:    string(note.Recipient),
		RecipientKey: strings.TrimSpace(note.RecipientKey),
		Kind:         string(note.Kind),
		OrderID:      strings.TrimSpace(note.OrderID),
		PayloadRefs:  append([]string(nil), note.PayloadRefs...),
		Metadata:     copyAnyMap(note.Metadata),
		Status:       outboxStatusPending,
		Attempts:     note.Attempts,
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
	if !note.NextAttempt.IsZero() {
		next := note.NextAttempt.UTC()
		record.NextAttemptAt = &next
	}

	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *OutboxStore) ClaimBatch(ctx context.Context, limit int) ([]core.Notification, error) {
	if s == nil || s.db == nil {
		return nil, storeInternal("sqlstore: outbox store is not configured", nil)
	}
	if limit <= 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	var records []notificationOutboxRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		query := `
WITH claimed AS (
	SELECT id
	FROM notification_outbox
	WHERE status = ?
	  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
	ORDER BY created_at ASC
	LIMIT ?
)
UPDATE notification_outbox
SET status = ?, updated_at = ?
WHERE id IN (SELECT id FROM claimed)
  AND status = ?
RETURNING
	id,
	recipient,
	recipient_key,
	kind,
	order_id,
	payload_refs,
	metadata,
	status,
	attempts,
	next_attempt_at,
	last_error,
	created_at,
	updated_at
`
		return tx.NewRaw(
			query,
			outboxStatusPending,
			now,
			limit,
			outboxStatusProcessing,
			now,
			outboxStatusPending,
		).Scan(ctx, &records)
	})
	if err != nil {
		return nil, err
	}

	notes := make([]core.Notification, 0, len(records))
	for _, record := range records {
		notes = append(notes, outboxRecordToNotification(record))
	}
	return notes, nil
}

func (s *OutboxStore) Ack(ctx context.Context, noteID string) error {
	if s == nil || s.db == nil {
		return storeInternal("sqlstore: outbox store is not configured", nil)
	}
	id := strings.TrimSpace(noteID)
	if id == "" {
		return storeBadInput("sqlstore: notification id is required", nil)
	}
	res, err := s.db.NewUpdate().
		Model((*notificationOutboxRecord)(nil)).
		Set("status = ?", outboxStatusDelivered).
		Set("last_error = ?", "").
		Set("next_attempt_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", outboxStatusProcessing).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storeNotFound("sqlstore: notification is not claimed", map[string]any{"notification_id": id})
	}
	return nil
}

func (s *OutboxStore) Retry(ctx context.Context, note core.Notification, nextAttemptAt time.Time, cause error) error {
	if s == nil || s.db == nil {
		return storeInternal("sqlstore: outbox store is not configured", nil)
	}
	id := strings.TrimSpace(note.ID)
	if id == "" {
		return storeBadInput("sqlstore: notification id is required", nil)
	}

	var next *time.Time
	if !nextAttemptAt.IsZero() {
		nextValue := nextAttemptAt.UTC()
		next = &nextValue
	}
	lastError := ""
	if cause != nil {
		lastError = strings.TrimSpace(cause.Error())
	}

	_, err := s.db.NewUpdate().
		Model((*notificationOutboxRecord)(nil)).
		Set("status = ?", outboxStatusPending).
		Set("attempts = attempts + 1").
		Set("next_attempt_at = ?", next).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func outboxRecordToNotification(record notificationOutboxRecord) core.Notification {
	note := core.Notification{
		ID:           record.ID,
		Recipient:    core.Recipient(record.Recipient),
		RecipientKey: record.RecipientKey,
		Kind:         core.NotificationKind(record.Kind),
		OrderID:      record.OrderID,
		PayloadRefs:  append([]string(nil), record.PayloadRefs...),
		Metadata:     copyAnyMap(record.Metadata),
		Attempts:     record.Attempts,
		CreatedAt:    record.CreatedAt,
	}
	if record.NextAttemptAt != nil {
		note.NextAttempt = record.NextAttemptAt.UTC()
	}
	return note
}

var _ core.NotificationOutbox = (*OutboxStore)(nil)
