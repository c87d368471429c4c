package persistence

import (
	"github.com/google/uuid"

	"github.com/meridianhq/meridian/modules/audit/domain/entities/deletionlog"
	"github.com/meridianhq/meridian/modules/audit/infrastructure/persistence/models"
	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
)

func toDBDeletionLog(entity *deletionlog.DeletionLog) *models.DeletionLog {
	if entity == nil {
		return &models.DeletionLog{}
	}
	return &models.DeletionLog{
		ID:           entity.ID,
		TenantID:     entity.TenantID.String(),
		TargetUserID: entity.TargetUserID.String(),
		InitiatedBy:  entity.InitiatedBy.String(),
		Initiator:    string(entity.Initiator),
		Reason:       entity.Reason,
		Success:      entity.Success,
		Result:       entity.Result,
		CreatedAt:    entity.CreatedAt,
	}
}

func toDomainDeletionLog(row *models.DeletionLog) *deletionlog.DeletionLog {
	tenantID, _ := uuid.Parse(row.TenantID)
	targetID, _ := uuid.Parse(row.TargetUserID)
	initiatedBy, _ := uuid.Parse(row.InitiatedBy)
	return &deletionlog.DeletionLog{
		ID:           row.ID,
		TenantID:     tenantID,
		TargetUserID: targetID,
		InitiatedBy:  initiatedBy,
		Initiator:    deletion.Initiator(row.Initiator),
		Reason:       row.Reason,
		Success:      row.Success,
		Result:       row.Result,
		CreatedAt:    row.CreatedAt,
	}
}
