package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/meridianhq/meridian/modules/audit/domain/entities/deletionlog"
	"github.com/meridianhq/meridian/modules/audit/services"
	"github.com/meridianhq/meridian/pkg/application"
	"github.com/meridianhq/meridian/pkg/composables"
)

const maxPageSize = 100

// DeletionLogsController exposes the read side of the deletion audit trail.
type DeletionLogsController struct {
	app      application.Application
	audit    *services.AuditService
	basePath string
}

func NewDeletionLogsController(app application.Application) application.Controller {
	return &DeletionLogsController{
		app:      app,
		audit:    app.Service(services.AuditService{}).(*services.AuditService),
		basePath: "/audit/api/deletion-logs",
	}
}

// Key implements application.Controller.
func (c *DeletionLogsController) Key() string {
	return c.basePath
}

// Register registers routes.
func (c *DeletionLogsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.list).Methods(http.MethodGet)
}

type deletionLogResponse struct {
	ID           uint            `json:"id"`
	TargetUserID string          `json:"targetUserId"`
	InitiatedBy  string          `json:"initiatedBy"`
	Initiator    string          `json:"initiator"`
	Reason       string          `json:"reason,omitempty"`
	Success      bool            `json:"success"`
	Result       json.RawMessage `json:"result"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type deletionLogListResponse struct {
	Total int64                  `json:"total"`
	Items []*deletionLogResponse `json:"items"`
}

func (c *DeletionLogsController) list(w http.ResponseWriter, r *http.Request) {
	if _, err := composables.UseUser(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	params, err := parseFindParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	logs, total, err := c.audit.ListDeletionLogs(r.Context(), params)
	if err != nil {
		c.app.Logger().WithError(err).Error("failed to list deletion logs")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	items := make([]*deletionLogResponse, 0, len(logs))
	for _, entry := range logs {
		items = append(items, &deletionLogResponse{
			ID:           entry.ID,
			TargetUserID: entry.TargetUserID.String(),
			InitiatedBy:  entry.InitiatedBy.String(),
			Initiator:    string(entry.Initiator),
			Reason:       entry.Reason,
			Success:      entry.Success,
			Result:       entry.Result,
			CreatedAt:    entry.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(&deletionLogListResponse{Total: total, Items: items}); err != nil {
		panic(err)
	}
}

func parseFindParams(r *http.Request) (*deletionlog.FindParams, error) {
	q := r.URL.Query()
	params := &deletionlog.FindParams{Limit: 50}

	if raw := q.Get("targetUserId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		params.TargetUserID = &id
	}
	if raw := q.Get("initiatedBy"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		params.InitiatedBy = &id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, err
		}
		params.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, err
		}
		params.To = &t
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		if limit > 0 && limit <= maxPageSize {
			params.Limit = limit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		if offset >= 0 {
			params.Offset = offset
		}
	}
	return params, nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}
