package sqlstore

import (
	"strings"

	"github.com/goliatone/go-orderflow/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func orderHandlers() repository.ModelHandlers[*orderRecord] {
	return repository.ModelHandlers[*orderRecord]{
		NewRecord: func() *orderRecord {
			return &orderRecord{}
		},
		// Order ids are 8-char short ids, not full UUIDs. GetID derives
		// a stable non-Nil UUID so the repository never treats a minted
		// record as unidentified; SetID preserves an assigned short id
		// and truncates anything the repository mints itself.
		GetID: func(record *orderRecord) uuid.UUID {
			if record == nil || strings.TrimSpace(record.ID) == "" {
				return uuid.Nil
			}
			return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.TrimSpace(record.ID)))
		},
		SetID: func(record *orderRecord, id uuid.UUID) {
			if record == nil || strings.TrimSpace(record.ID) != "" {
				return
			}
			record.ID = id.String()[:core.OrderIDLength]
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *orderRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func notificationDispatchHandlers() repository.ModelHandlers[*notificationDispatchRecord] {
	return repository.ModelHandlers[*notificationDispatchRecord]{
		NewRecord: func() *notificationDispatchRecord {
			return &notificationDispatchRecord{}
		},
		GetID: func(record *notificationDispatchRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *notificationDispatchRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *notificationDispatchRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func notificationOutboxHandlers() repository.ModelHandlers[*notificationOutboxRecord] {
	return repository.ModelHandlers[*notificationOutboxRecord]{
		NewRecord: func() *notificationOutboxRecord {
			return &notificationOutboxRecord{}
		},
		GetID: func(record *notificationOutboxRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *notificationOutboxRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *notificationOutboxRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
