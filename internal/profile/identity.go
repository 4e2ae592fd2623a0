package profile

import (
	"context"
	"time"
)

// Account is an identity-provider account as seen by this service.
type Account struct {
	UID         string
	Email       string
	DisplayName string
	Admin       bool
	CreatedAt   time.Time
}

// IdentityProvider issues credentialed accounts. Email format, password
// strength and email uniqueness are all enforced on its side.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (uid string, err error)
	DeleteAccount(ctx context.Context, uid string) error
	ListAccounts(ctx context.Context) ([]Account, error)
}
