package store

import (
	"context"

	"github.com/samber/oops"
)

// IdentityLinkRepository implements gatekeeper.IdentityLinkProvider on PostgreSQL.
type IdentityLinkRepository struct {
	pool poolIface
}

// NewIdentityLinkRepository creates a repository over pool.
func NewIdentityLinkRepository(pool poolIface) *IdentityLinkRepository {
	return &IdentityLinkRepository{pool: pool}
}

// LinkedIDs returns the external ids linked to email, oldest link first.
func (r *IdentityLinkRepository) LinkedIDs(ctx context.Context, email string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT external_id FROM identity_links
		 WHERE lower(email) = lower($1)
		 ORDER BY linked_at, external_id`,
		email)
	if err != nil {
		return nil, oops.Code("IDENTITY_QUERY_FAILED").With("email", email).Wrap(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, oops.Code("IDENTITY_QUERY_FAILED").With("operation", "scan identity link row").Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("IDENTITY_QUERY_FAILED").With("operation", "iterate identity links").Wrap(err)
	}
	return ids, nil
}

// Link records externalID for email. Relinking the same id is a no-op.
func (r *IdentityLinkRepository) Link(ctx context.Context, email, externalID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO identity_links (email, external_id) VALUES (lower($1), $2)
		 ON CONFLICT (email, external_id) DO NOTHING`,
		email, externalID)
	if err != nil {
		return oops.Code("IDENTITY_LINK_FAILED").With("email", email).Wrap(err)
	}
	return nil
}
