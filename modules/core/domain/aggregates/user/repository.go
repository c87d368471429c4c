package user

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
