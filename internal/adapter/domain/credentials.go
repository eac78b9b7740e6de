package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrCredentialsNotFound is returned when no credentials exist for an adapter id.
var ErrCredentialsNotFound = errors.New("adapter credentials not found")

// Credentials holds the two Gupshup account pairs an adapter instance uses:
// the HSM (template) account and the two-way session account.
type Credentials struct {
	UsernameHSM  string
	PasswordHSM  string
	Username2Way string
	Password2Way string
}

// CredentialStore looks up provider credentials for a configured adapter instance.
type CredentialStore interface {
	GetByAdapterID(ctx context.Context, adapterID uuid.UUID) (*Credentials, error)
}
