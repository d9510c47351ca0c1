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

// NotificationDispatchStore is the durable core.DispatchLedger. The
// idempotency key column carries a unique constraint, so a replayed
// Record is absorbed instead of duplicated.
type NotificationDispatchStore struct {
	repo repository.Repository[*notificationDispatchRecord]
}

func NewNotificationDispatchStore(db *bun.DB) (*NotificationDispatchStore, error) {
	if db == nil {
		return nil, storeInternal("sqlstore: bun db is required", nil)
	}
	repo := repository.NewRepository[*notificationDispatchRecord](db, notificationDispatchHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, storeInternal("sqlstore: invalid notification dispatch repository wiring", map[string]any{"cause": err.Error()})
		}
	}
	return &NotificationDispatchStore{repo: repo}, nil
}

func (s *NotificationDispatchStore) Seen(ctx context.Context, idempotencyKey string) (bool, error) {
	if s == nil || s.repo == nil {
		return false, storeInternal("sqlstore: notification dispatch store is not configured", nil)
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return false, storeBadInput("sqlstore: idempotency key is required", nil)
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("idempotency_key", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

func (s *NotificationDispatchStore) Record(ctx context.Context, entry core.DispatchRecord) error {
	if s == nil || s.repo == nil {
		return storeInternal("sqlstore: notification dispatch store is not configured", nil)
	}
	if strings.TrimSpace(entry.NotificationID) == "" {
		return storeBadInput("sqlstore: notification id is required", nil)
	}
	if strings.TrimSpace(entry.RecipientKey) == "" {
		return storeBadInput("sqlstore: recipient key is required", nil)
	}
	if strings.TrimSpace(entry.IdempotencyKey) == "" {
		return storeBadInput("sqlstore: idempotency key is required", nil)
	}

	status := strings.TrimSpace(entry.Status)
	if status == "" {
		status = "sent"
	}
	record := &notificationDispatchRecord{
		ID:             uuid.NewString(),
		NotificationID: strings.TrimSpace(entry.NotificationID),
		Kind:           strings.TrimSpace(string(entry.Kind)),
		RecipientKey:   strings.TrimSpace(entry.RecipientKey),
		IdempotencyKey: strings.TrimSpace(entry.IdempotencyKey),
		Status:         status,
		Error:          strings.TrimSpace(entry.Error),
		Metadata:       copyAnyMap(entry.Metadata),
		CreatedAt:      time.Now().UTC(),
	}
	_, err := s.repo.Create(ctx, record)
	if err != nil && isUniqueConstraintError(err) {
		return nil
	}
	return err
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "duplicate")
}
