package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/meridianhq/meridian/modules/core/domain/aggregates/user"
	"github.com/meridianhq/meridian/modules/core/domain/entities/document"
)

var ErrUserNotFound = errors.New("user not found")

// UsersTable is the document table holding account records. It participates
// in the cascade with a delete strategy on its own id field.
const UsersTable = "users"

// DocUserRepository reads account aggregates out of the users document
// table.
type DocUserRepository struct {
	store document.Store
}

func NewUserRepository(store document.Store) user.Repository {
	return &DocUserRepository{store: store}
}

func (r *DocUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	doc, err := r.store.Get(ctx, UsersTable, id.String())
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toDomainUser(doc)
}

func (r *DocUserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := r.store.Get(ctx, UsersTable, id.String())
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func toDomainUser(doc document.Document) (user.User, error) {
	id, err := uuid.Parse(doc.ID())
	if err != nil {
		return nil, errors.Wrap(err, "invalid user document id")
	}

	opts := []user.Option{user.WithID(id)}
	if raw, ok := doc.StringField("tenantId"); ok {
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(err, "invalid user tenant id")
		}
		opts = append(opts, user.WithTenantID(tenantID))
	}
	if externalID, ok := doc.StringField("externalId"); ok {
		opts = append(opts, user.WithExternalID(externalID))
	}
	if raw, ok := doc.StringField("createdAt"); ok {
		if createdAt, err := time.Parse(time.RFC3339, raw); err == nil {
			opts = append(opts, user.WithCreatedAt(createdAt))
		}
	}

	email, _ := doc.StringField("email")
	return user.New(email, opts...), nil
}
