package services

import (
	"context"
	"errors"

	"github.com/meridianhq/meridian/modules/audit/domain/entities/deletionlog"
)

// AuditService records and lists deletion cascade executions.
type AuditService struct {
	repo deletionlog.Repository
}

func NewAuditService(repo deletionlog.Repository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) ListDeletionLogs(
	ctx context.Context,
	params *deletionlog.FindParams,
) ([]*deletionlog.DeletionLog, int64, error) {
	if params == nil {
		params = &deletionlog.FindParams{}
	}

	logs, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return logs, count, nil
}

func (s *AuditService) RecordDeletion(ctx context.Context, log *deletionlog.DeletionLog) error {
	if log == nil {
		return errors.New("deletion log payload is required")
	}
	return s.repo.Create(ctx, log)
}
