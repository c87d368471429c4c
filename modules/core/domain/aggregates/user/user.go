package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the account aggregate as the deletion subsystem sees it. Profile
// detail lives in the users document table; this aggregate carries only the
// identity facts services need.
type User interface {
	ID() uuid.UUID
	TenantID() uuid.UUID
	Email() string
	ExternalID() string
	CreatedAt() time.Time
}

type Option func(*u)

func WithID(id uuid.UUID) Option {
	return func(usr *u) {
		usr.id = id
	}
}

func WithTenantID(tenantID uuid.UUID) Option {
	return func(usr *u) {
		usr.tenantID = tenantID
	}
}

func WithExternalID(externalID string) Option {
	return func(usr *u) {
		usr.externalID = externalID
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(usr *u) {
		usr.createdAt = createdAt
	}
}

func New(email string, opts ...Option) User {
	usr := &u{
		id:        uuid.New(),
		email:     email,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(usr)
	}
	return usr
}

type u struct {
	id         uuid.UUID
	tenantID   uuid.UUID
	email      string
	externalID string
	createdAt  time.Time
}

func (usr *u) ID() uuid.UUID        { return usr.id }
func (usr *u) TenantID() uuid.UUID  { return usr.tenantID }
func (usr *u) Email() string        { return usr.email }
func (usr *u) ExternalID() string   { return usr.externalID }
func (usr *u) CreatedAt() time.Time { return usr.createdAt }
