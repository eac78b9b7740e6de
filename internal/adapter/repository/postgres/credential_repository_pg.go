package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/convobridge/gupshup-gateway/internal/adapter/domain"
)

// DBPool is the subset of pgxpool.Pool the repository uses; it also matches
// pgxmock's pool interface for tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgCredentialRepository struct {
	db     DBPool
	logger *slog.Logger
}

// NewPgCredentialRepository creates a PostgreSQL-backed credential store.
func NewPgCredentialRepository(db DBPool, logger *slog.Logger) domain.CredentialStore {
	return &PgCredentialRepository{db: db, logger: logger.With("component", "credential_repository_pg")}
}

func (r *PgCredentialRepository) GetByAdapterID(ctx context.Context, adapterID uuid.UUID) (*domain.Credentials, error) {
	query := `
		SELECT username_hsm, password_hsm, username_2way, password_2way
		FROM adapter_credentials
		WHERE adapter_id = $1
	`

	var creds domain.Credentials
	err := r.db.QueryRow(ctx, query, adapterID).Scan(
		&creds.UsernameHSM, &creds.PasswordHSM, &creds.Username2Way, &creds.Password2Way,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialsNotFound
		}
		r.logger.ErrorContext(ctx, "Error querying adapter credentials", "error", err, "adapter_id", adapterID)
		return nil, fmt.Errorf("querying adapter credentials: %w", err)
	}

	return &creds, nil
}
