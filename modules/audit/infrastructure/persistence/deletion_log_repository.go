package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridianhq/meridian/modules/audit/domain/entities/deletionlog"
	"github.com/meridianhq/meridian/modules/audit/infrastructure/persistence/models"
	"github.com/meridianhq/meridian/pkg/composables"
	"github.com/meridianhq/meridian/pkg/repo"
)

type DeletionLogRepository struct{}

func NewDeletionLogRepository() deletionlog.Repository {
	return &DeletionLogRepository{}
}

func (r *DeletionLogRepository) List(ctx context.Context, params *deletionlog.FindParams) ([]*deletionlog.DeletionLog, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildDeletionLogFilters(params, tenantID)
	query := `
		SELECT id, tenant_id, target_user_id, initiated_by, initiator, reason, success, result, created_at
		FROM deletion_logs
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*deletionlog.DeletionLog
	for rows.Next() {
		var row models.DeletionLog
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.TargetUserID,
			&row.InitiatedBy,
			&row.Initiator,
			&row.Reason,
			&row.Success,
			&row.Result,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainDeletionLog(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *DeletionLogRepository) Count(ctx context.Context, params *deletionlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildDeletionLogFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM deletion_logs
		WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DeletionLogRepository) Create(ctx context.Context, log *deletionlog.DeletionLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow := toDBDeletionLog(log)
	if log != nil && log.TenantID == uuid.Nil {
		tenantID, err := composables.UseTenantID(ctx)
		if err != nil {
			return err
		}
		dbRow.TenantID = tenantID.String()
		log.TenantID = tenantID
	}
	if dbRow.CreatedAt.IsZero() {
		dbRow.CreatedAt = time.Now()
	}

	return tx.QueryRow(
		ctx,
		`INSERT INTO deletion_logs (tenant_id, target_user_id, initiated_by, initiator, reason, success, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		dbRow.TenantID,
		dbRow.TargetUserID,
		dbRow.InitiatedBy,
		dbRow.Initiator,
		dbRow.Reason,
		dbRow.Success,
		dbRow.Result,
		dbRow.CreatedAt,
	).Scan(&log.ID, &log.CreatedAt)
}

func buildDeletionLogFilters(params *deletionlog.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argPos := 2
	if params == nil {
		return where, args
	}

	if params.TargetUserID != nil {
		where = append(where, fmt.Sprintf("target_user_id = $%d", argPos))
		args = append(args, *params.TargetUserID)
		argPos++
	}
	if params.InitiatedBy != nil {
		where = append(where, fmt.Sprintf("initiated_by = $%d", argPos))
		args = append(args, *params.InitiatedBy)
		argPos++
	}
	if params.From != nil && !params.From.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *params.From)
		argPos++
	}
	if params.To != nil && !params.To.IsZero() {
		where = append(where, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *params.To)
	}
	return where, args
}
