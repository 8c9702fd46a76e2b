package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APIKey stores only the bcrypt hash of the secret; the plaintext is shown
// once at creation and never persisted.
type APIKey struct {
	ID             string
	OrganizationID string
	Name           string
	Prefix         string
	SecretHash     string
	CreatedBy      string
	LastUsedAt     *time.Time
	RevokedAt      *time.Time
	CreatedAt      time.Time
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *APIKey) error
	FindByID(ctx context.Context, id string) (*APIKey, error)
	FindByPrefix(ctx context.Context, prefix string) (*APIKey, error)
	FindByOrganization(ctx context.Context, orgID string) ([]*APIKey, error)
	Revoke(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}

type pgAPIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) APIKeyRepository {
	return &pgAPIKeyRepository{pool: pool}
}

func (r *pgAPIKeyRepository) Create(ctx context.Context, key *APIKey) error {
	query := `
		INSERT INTO api_keys (organization_id, name, prefix, secret_hash, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		key.OrganizationID, key.Name, key.Prefix, key.SecretHash, key.CreatedBy,
	).Scan(&key.ID, &key.CreatedAt)
}

func (r *pgAPIKeyRepository) FindByID(ctx context.Context, id string) (*APIKey, error) {
	query := `
		SELECT id, organization_id, name, prefix, secret_hash, created_by, last_used_at, revoked_at, created_at
		FROM api_keys WHERE id = $1
	`
	return r.scanKey(r.pool.QueryRow(ctx, query, id))
}

func (r *pgAPIKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*APIKey, error) {
	query := `
		SELECT id, organization_id, name, prefix, secret_hash, created_by, last_used_at, revoked_at, created_at
		FROM api_keys WHERE prefix = $1 AND revoked_at IS NULL
	`
	return r.scanKey(r.pool.QueryRow(ctx, query, prefix))
}

func (r *pgAPIKeyRepository) scanKey(row pgx.Row) (*APIKey, error) {
	k := &APIKey{}
	err := row.Scan(
		&k.ID, &k.OrganizationID, &k.Name, &k.Prefix, &k.SecretHash,
		&k.CreatedBy, &k.LastUsedAt, &k.RevokedAt, &k.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (r *pgAPIKeyRepository) FindByOrganization(ctx context.Context, orgID string) ([]*APIKey, error) {
	query := `
		SELECT id, organization_id, name, prefix, secret_hash, created_by, last_used_at, revoked_at, created_at
		FROM api_keys WHERE organization_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		k := &APIKey{}
		if err := rows.Scan(
			&k.ID, &k.OrganizationID, &k.Name, &k.Prefix, &k.SecretHash,
			&k.CreatedBy, &k.LastUsedAt, &k.RevokedAt, &k.CreatedAt,
		); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *pgAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

func (r *pgAPIKeyRepository) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	return err
}
