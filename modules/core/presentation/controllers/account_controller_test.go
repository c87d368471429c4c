package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/meridian/modules/audit/domain/entities/deletionlog"
	"github.com/meridianhq/meridian/modules/core/domain/aggregates/user"
	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
	"github.com/meridianhq/meridian/modules/core/domain/entities/document"
	"github.com/meridianhq/meridian/modules/core/infrastructure/docstore"
	"github.com/meridianhq/meridian/modules/core/presentation/controllers"
	"github.com/meridianhq/meridian/modules/core/presentation/controllers/dtos"
	"github.com/meridianhq/meridian/modules/core/services"
	"github.com/meridianhq/meridian/pkg/application"
	"github.com/meridianhq/meridian/pkg/composables"
)

type userRepoStub struct{}

func (userRepoStub) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return nil, nil
}

func (userRepoStub) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return true, nil
}

type auditStub struct {
	entries int
}

func (a *auditStub) RecordDeletion(ctx context.Context, log *deletionlog.DeletionLog) error {
	a.entries++
	return nil
}

func setupRouter(t *testing.T) (*mux.Router, *docstore.MemoryStore) {
	t.Helper()

	manifest, err := deletion.ParseManifest(`
[cascade.orders]
[cascade.orders.fields]
userId = "delete"
`)
	require.NoError(t, err)

	indexes := document.NewIndexRegistry()
	for _, table := range manifest.CascadeTables() {
		indexes.Register(table, manifest.IndexName(table), manifest.IndexField(table))
	}
	store := docstore.NewMemoryStore(indexes)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{Logger: logger})

	cascade := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
		Logger:   logger,
	})
	app.RegisterServices(services.NewAccountService(services.AccountServiceOptions{
		Users:   userRepoStub{},
		Cascade: cascade,
		Audit:   &auditStub{},
	}))

	router := mux.NewRouter()
	controllers.NewAccountController(app).Register(router)
	return router, store
}

func deleteRequest(body string, caller user.User) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/core/api/account/delete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(composables.WithUser(req.Context(), caller))
	}
	return req
}

func TestAccountController_DeleteAccount(t *testing.T) {
	t.Parallel()

	t.Run("Unauthenticated", func(t *testing.T) {
		router, _ := setupRouter(t)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, deleteRequest(`{"confirmationString":"DELETE"}`, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var apiErr dtos.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
		assert.Equal(t, "ACCOUNT_UNAUTHENTICATED", apiErr.Code)
	})

	t.Run("Wrong_Case_Confirmation", func(t *testing.T) {
		router, store := setupRouter(t)
		caller := user.New("ada@example.com", user.WithTenantID(uuid.New()))
		_, err := store.Insert(context.Background(), "orders", document.Document{"userId": caller.ID().String()})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, deleteRequest(`{"confirmationString":"delete"}`, caller))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var apiErr dtos.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
		assert.Equal(t, "ACCOUNT_INVALID_CONFIRMATION", apiErr.Code)

		// Nothing was deleted.
		assert.Equal(t, 1, store.Count("orders"))
	})

	t.Run("Invalid_Body", func(t *testing.T) {
		router, _ := setupRouter(t)
		caller := user.New("ada@example.com")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, deleteRequest(`{not json`, caller))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, deleteRequest(`{"reason":"bye"}`, caller))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Success", func(t *testing.T) {
		router, store := setupRouter(t)
		caller := user.New("ada@example.com", user.WithTenantID(uuid.New()))
		for i := 0; i < 2; i++ {
			_, err := store.Insert(context.Background(), "orders", document.Document{"userId": caller.ID().String()})
			require.NoError(t, err)
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, deleteRequest(`{"confirmationString":"DELETE","reason":"done here"}`, caller))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dtos.DeleteAccountResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, []string{"orders"}, resp.Details.TablesProcessed)
		assert.Equal(t, 2, resp.Details.RecordsDeleted)
		assert.Equal(t, 0, store.Count("orders"))

		// Elapsed time is reported under "duration", in milliseconds.
		assert.Contains(t, rec.Body.String(), `"duration":`)
		assert.NotContains(t, rec.Body.String(), `"durationMs"`)
	})
}
