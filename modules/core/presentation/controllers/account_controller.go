package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meridianhq/meridian/modules/core/presentation/controllers/dtos"
	"github.com/meridianhq/meridian/modules/core/services"
	"github.com/meridianhq/meridian/pkg/application"
	"github.com/meridianhq/meridian/pkg/constants"
)

// AccountController exposes the self-service account endpoints. Deletion
// always targets the authenticated caller; no route accepts a user ID.
type AccountController struct {
	app      application.Application
	account  *services.AccountService
	basePath string
}

func NewAccountController(app application.Application) application.Controller {
	return &AccountController{
		app:      app,
		account:  app.Service(services.AccountService{}).(*services.AccountService),
		basePath: "/core/api/account",
	}
}

// Key implements application.Controller.
func (c *AccountController) Key() string {
	return c.basePath
}

// Register registers routes.
func (c *AccountController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/delete", c.deleteAccount).Methods(http.MethodPost)
}

func (c *AccountController) deleteAccount(w http.ResponseWriter, r *http.Request) {
	var body dtos.DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if err := constants.Validate.Struct(body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	result, err := c.account.SelfDelete(r.Context(), services.SelfDeleteRequest{
		Reason:             body.Reason,
		ConfirmationString: body.ConfirmationString,
	})
	if err != nil {
		c.writeDeleteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &dtos.DeleteAccountResponse{
		Success: result.Result.Success,
		Message: result.Message,
		Details: dtos.DeleteAccountDetails{
			TablesProcessed:   result.Result.TablesProcessed,
			RecordsDeleted:    result.Result.RecordsDeleted,
			RecordsAnonymized: result.Result.RecordsAnonymized,
			FilesDeleted:      len(result.Result.FilesDeleted),
			DurationMs:        result.Result.Duration.Milliseconds(),
		},
	})
}

func (c *AccountController) writeDeleteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, services.ErrUnauthenticated.Code, services.ErrUnauthenticated.Message)
	case errors.Is(err, services.ErrInvalidConfirmation):
		writeJSONError(w, http.StatusBadRequest, services.ErrInvalidConfirmation.Code, services.ErrInvalidConfirmation.Message)
	case errors.Is(err, services.ErrUserNotFound):
		writeJSONError(w, http.StatusNotFound, services.ErrUserNotFound.Code, services.ErrUserNotFound.Message)
	default:
		c.app.Logger().WithError(err).Error("account deletion failed")
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
