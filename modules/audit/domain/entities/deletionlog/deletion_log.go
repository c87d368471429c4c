package deletionlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
)

// DeletionLog is one append-only record of a cascade execution. The target
// and the initiator are recorded separately: today only self-deletion
// exists, but administrator-initiated deletion must stay expressible.
type DeletionLog struct {
	ID           uint
	TenantID     uuid.UUID
	TargetUserID uuid.UUID
	InitiatedBy  uuid.UUID
	Initiator    deletion.Initiator
	Reason       string
	Success      bool
	Result       json.RawMessage
	CreatedAt    time.Time
}

func New(tenantID, target, initiatedBy uuid.UUID, initiator deletion.Initiator, reason string, result deletion.Result) (*DeletionLog, error) {
	raw, err := json.Marshal(resultPayload{
		Success:           result.Success,
		TablesProcessed:   result.TablesProcessed,
		RecordsDeleted:    result.RecordsDeleted,
		RecordsAnonymized: result.RecordsAnonymized,
		FilesDeleted:      result.FilesDeleted,
		DurationMs:        result.Duration.Milliseconds(),
		ErrorMessage:      result.ErrorMessage,
	})
	if err != nil {
		return nil, err
	}
	return &DeletionLog{
		TenantID:     tenantID,
		TargetUserID: target,
		InitiatedBy:  initiatedBy,
		Initiator:    initiator,
		Reason:       reason,
		Success:      result.Success,
		Result:       raw,
	}, nil
}

type resultPayload struct {
	Success           bool     `json:"success"`
	TablesProcessed   []string `json:"tablesProcessed"`
	RecordsDeleted    int      `json:"recordsDeleted"`
	RecordsAnonymized int      `json:"recordsAnonymized"`
	FilesDeleted      []string `json:"filesDeleted"`
	DurationMs        int64    `json:"durationMs"`
	ErrorMessage      string   `json:"errorMessage,omitempty"`
}

type FindParams struct {
	TargetUserID *uuid.UUID
	InitiatedBy  *uuid.UUID
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// Repository is append-only: entries are never updated or deleted once
// written. The deletion_logs table sits in the manifest preserve set so the
// cascade can never erase its own trail.
type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*DeletionLog, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, log *DeletionLog) error
}
