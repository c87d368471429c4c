package models

import (
	"encoding/json"
	"time"
)

type DeletionLog struct {
	ID           uint
	TenantID     string
	TargetUserID string
	InitiatedBy  string
	Initiator    string
	Reason       string
	Success      bool
	Result       json.RawMessage
	CreatedAt    time.Time
}
