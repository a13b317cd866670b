package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcjars/registry/cache"
	"github.com/mcjars/registry/models/servertype"
)

// MaxOrganizationKeys and MaxOrganizationSubusers are the bounded-scope
// quotas spec.md 4.6's 409 Conflict taxonomy entry references.
const (
	MaxOrganizationKeys     = 15
	MaxOrganizationSubusers = 15
)

// Organization is a registry tenant: an owning user, a display name/icon,
// and the set of server families it's allowed to publish builds for.
// Matches organization.rs's Organization.
type Organization struct {
	ID int32 `json:"id"`

	OwnerID int32 `json:"-"`

	Verified bool `json:"verified"`
	Public   bool `json:"public"`

	Name  string            `json:"name"`
	Icon  string            `json:"icon"`
	Types []servertype.Type `json:"types"`

	Created time.Time `json:"created"`
}

// OrganizationKey is an API key belonging to an organization. The secret
// itself is never stored on this struct; it's returned once at creation.
type OrganizationKey struct {
	ID             int32     `json:"id"`
	OrganizationID int32     `json:"-"`
	Name           string    `json:"name"`
	Created        time.Time `json:"created"`
}

const organizationColumns = `organizations.id, organizations.owner_id, organizations.verified,
	organizations.public, organizations.name, organizations.icon, organizations.types, organizations.created`

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	var rawTypes []byte

	if err := row.Scan(&o.ID, &o.OwnerID, &o.Verified, &o.Public, &o.Name, &o.Icon, &rawTypes, &o.Created); err != nil {
		return nil, err
	}

	var names []string
	if err := unmarshalJSONB(rawTypes, &names); err != nil {
		return nil, err
	}
	for _, n := range names {
		t, err := servertype.Parse(n)
		if err != nil {
			continue
		}
		o.Types = append(o.Types, t)
	}

	return &o, nil
}

// OrganizationByKey resolves an API key to its owning organization,
// cached 5 minutes, matching Organization::by_key.
func OrganizationByKey(ctx context.Context, pool *pgxpool.Pool, c *cache.Client, key string) (*Organization, error) {
	cacheKey := fmt.Sprintf("organization::key::%s", key)

	return cache.Cached(ctx, c, cacheKey, 5*time.Minute, func(ctx context.Context) (*Organization, error) {
		row := pool.QueryRow(ctx, fmt.Sprintf(`
			SELECT %s
			FROM organizations
			LEFT JOIN organization_keys ON organizations.id = organization_keys.organization_id
			WHERE organization_keys.key = $1
			LIMIT 1
		`, organizationColumns), key)

		org, err := scanOrganization(row)
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return org, err
	})
}

// OrganizationByIDAndUser resolves an organization the given user may
// act on: its owner, one of its subusers, or any organization if the
// user is an admin. Cached 1 minute, matching Organization::by_id_and_user.
func OrganizationByIDAndUser(ctx context.Context, pool *pgxpool.Pool, c *cache.Client, userID int32, userAdmin bool, organizationID int32) (*Organization, error) {
	cacheKey := fmt.Sprintf("organization::%d::user::%d", organizationID, userID)

	return cache.Cached(ctx, c, cacheKey, time.Minute, func(ctx context.Context) (*Organization, error) {
		row := pool.QueryRow(ctx, fmt.Sprintf(`
			SELECT %s
			FROM organizations
			LEFT JOIN organization_subusers ON organizations.id = organization_subusers.organization_id
			WHERE
				(organizations.owner_id = $1 OR organization_subusers.user_id = $1 OR $2)
				AND organizations.id = $3
			LIMIT 1
		`, organizationColumns), userID, userAdmin, organizationID)

		org, err := scanOrganization(row)
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return org, err
	})
}

// NewOrganizationKey generates a 64-hex-char secret (SHA-256 of the
// creation timestamp concatenated with the organization id, matching
// organization.rs's OrganizationKey::new) and inserts it, returning
// false if a key with that name already exists for the organization.
func NewOrganizationKey(ctx context.Context, pool *pgxpool.Pool, organizationID int32, name string) (created bool, secret string, err error) {
	secret = deriveOrganizationKeySecret(organizationID, time.Now())

	tag, err := pool.Exec(ctx, `
		INSERT INTO organization_keys (organization_id, name, key)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, name) DO NOTHING
	`, organizationID, name, secret)
	if err != nil {
		return false, "", err
	}

	return tag.RowsAffected() == 1, secret, nil
}

// deriveOrganizationKeySecret computes the 64-hex-char secret as
// sha256(creation-timestamp || organization-id), matching
// organization.rs's OrganizationKey::new hash derivation exactly.
func deriveOrganizationKeySecret(organizationID int32, at time.Time) string {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(at.Unix()))

	var orgID [4]byte
	binary.BigEndian.PutUint32(orgID[:], uint32(organizationID))

	h := sha256.New()
	h.Write(ts[:])
	h.Write(orgID[:])
	return hex.EncodeToString(h.Sum(nil))
}

// CountOrganizationKeys reports how many keys an organization has
// issued, used to enforce MaxOrganizationKeys.
func CountOrganizationKeys(ctx context.Context, pool *pgxpool.Pool, organizationID int32) (int64, error) {
	var count int64
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM organization_keys WHERE organization_id = $1`, organizationID).Scan(&count)
	return count, err
}
