package deletion

import (
	"context"

	"github.com/google/uuid"
)

// ReassignPolicy resolves the account a reassigned field transfers to. The
// manifest only records that a field uses the reassign strategy; which user
// receives ownership is a product decision supplied by the caller. When no
// policy is wired the executor logs a warning and leaves the field as is
// rather than guessing a default target.
type ReassignPolicy interface {
	ReassignTarget(ctx context.Context, table, field string, previousOwner uuid.UUID) (uuid.UUID, error)
}
