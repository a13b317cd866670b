package models

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcjars/registry/cache"
	"github.com/mcjars/registry/models/servertype"
)

// Version is a family's per-version rollup paired with its latest build,
// matching version.rs's Version.
type Version struct {
	Type      string `json:"type"`
	Supported bool   `json:"supported"`
	Java      int32  `json:"java"`
	Builds    int64  `json:"builds"`

	Created time.Time `json:"created"`
	Latest  *Build    `json:"latest"`
}

// VersionLocation determines which builds column identifies versions for
// a family: project_version_id for proxy/project-identified families,
// else version_id if the id exists in minecraft_versions, else "" (no
// match). Cached 24h, matching version.rs's location.
func VersionLocation(ctx context.Context, pool *pgxpool.Pool, c *cache.Client, t servertype.Type, id string) (string, error) {
	key := fmt.Sprintf("version_location::%s::%s", t, id)

	return cache.Cached(ctx, c, key, 24*time.Hour, func(ctx context.Context) (string, error) {
		if servertype.WithProjectAsIdentifier[t] {
			var exists int
			err := pool.QueryRow(ctx, `
				SELECT 1 FROM project_versions WHERE id = $1 AND type = $2 LIMIT 1
			`, id, string(t)).Scan(&exists)
			if err == nil {
				return "project_version_id", nil
			}
			if err != pgx.ErrNoRows {
				return "", err
			}
		}

		var exists int
		err := pool.QueryRow(ctx, `SELECT 1 FROM minecraft_versions WHERE id = $1 LIMIT 1`, id).Scan(&exists)
		if err == nil {
			return "version_id", nil
		}
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", err
	})
}

// VersionsForType enumerates every version of a family paired with its
// latest build, ordered ascending by version creation. Cached 30
// minutes, matching version.rs's all.
func VersionsForType(ctx context.Context, pool *pgxpool.Pool, c *cache.Client, t servertype.Type) ([]Version, error) {
	key := fmt.Sprintf("versions::%s", t)

	return cache.Cached(ctx, c, key, 30*time.Minute, func(ctx context.Context) ([]Version, error) {
		if servertype.WithProjectAsIdentifier[t] {
			return projectVersionsForType(ctx, pool, t)
		}
		return minecraftVersionsForType(ctx, pool, t)
	})
}

func projectVersionsForType(ctx context.Context, pool *pgxpool.Pool, t servertype.Type) ([]Version, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, x.builds, x.created_oldest
		FROM (
			SELECT
				COUNT(builds.id) AS builds,
				MAX(builds.id) AS latest,
				MIN(builds.created) AS created_oldest
			FROM project_versions
			INNER JOIN builds ON builds.project_version_id = project_versions.id
			WHERE builds.type = $1
			GROUP BY project_versions.id
		) AS x
		INNER JOIN builds ON builds.id = x.latest
		ORDER BY x.created_oldest ASC
	`, prefixColumns("builds", buildColumns)), string(t))
	if err != nil {
		return nil, fmt.Errorf("query project versions: %w", err)
	}
	defer rows.Close()

	type row struct {
		build   *Build
		builds  int64
		created time.Time
	}
	var collected []row

	for rows.Next() {
		var builds int64
		var created time.Time
		latest, err := scanBuildRow(rows, &builds, &created)
		if err != nil {
			return nil, err
		}
		collected = append(collected, row{build: latest, builds: builds, created: created})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Version
	for i, r := range collected {
		out = append(out, Version{
			Type:      "RELEASE",
			Supported: i == len(collected)-1,
			Java:      21,
			Builds:    r.builds,
			Created:   r.created,
			Latest:    r.build,
		})
	}

	return out, nil
}

func minecraftVersionsForType(ctx context.Context, pool *pgxpool.Pool, t servertype.Type) ([]Version, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, x.builds, x.minecraft_version_type, x.minecraft_version_created,
			x.minecraft_version_supported, x.minecraft_version_java
		FROM (
			SELECT
				COUNT(builds.id) AS builds,
				MAX(builds.id) AS latest,
				minecraft_versions.type::text AS minecraft_version_type,
				minecraft_versions.created AS minecraft_version_created,
				minecraft_versions.supported AS minecraft_version_supported,
				minecraft_versions.java AS minecraft_version_java
			FROM minecraft_versions
			INNER JOIN builds ON builds.version_id = minecraft_versions.id
			WHERE builds.type = $1
			GROUP BY minecraft_versions.id
		) AS x
		INNER JOIN builds ON builds.id = x.latest
		ORDER BY x.minecraft_version_created ASC
	`, prefixColumns("builds", buildColumns)), string(t))
	if err != nil {
		return nil, fmt.Errorf("query minecraft versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var builds int64
		var versionType string
		var created time.Time
		var supported bool
		var java int32

		latest, err := scanBuildRow(rows, &builds, &versionType, &created, &supported, &java)
		if err != nil {
			return nil, err
		}

		out = append(out, Version{
			Type:      versionType,
			Supported: supported,
			Java:      java,
			Builds:    builds,
			Created:   created,
			Latest:    latest,
		})
	}

	return out, rows.Err()
}
