// Package models holds the domain read models (C7): Build, Version,
// Config, Organization, and User, each a thin, cache-backed query layer
// over the relational store. Grounded directly on
// original_source/backend/src/models/*.rs.
package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcjars/registry/cache"
	"github.com/mcjars/registry/models/servertype"
)

// InstallationStep is one entry of an installation pipeline: a download,
// an unzip, or a file removal, matching build.rs's InstallationStep enum.
type InstallationStep struct {
	Type     string `json:"type"`
	URL      string `json:"url,omitempty"`
	File     string `json:"file,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Location string `json:"location,omitempty"`
}

// Build is one published server binary, matching build.rs's Build.
type Build struct {
	ID int32 `json:"id"`

	VersionID        *string `json:"versionId"`
	ProjectVersionID *string `json:"projectVersionId"`

	Type         servertype.Type `json:"type"`
	Experimental bool            `json:"experimental"`

	Name        string  `json:"name"`
	BuildNumber int32   `json:"buildNumber"`
	JarURL      *string `json:"jarUrl"`
	JarSize     *int32  `json:"jarSize"`
	ZipURL      *string `json:"zipUrl"`
	ZipSize     *int32  `json:"zipSize"`

	Installation [][]InstallationStep `json:"installation"`
	Changes      []string             `json:"changes"`

	Created *time.Time `json:"created"`
}

// MinifiedVersion is the compact per-version rollup attached alongside a
// build lookup result, matching version.rs's MinifiedVersion.
type MinifiedVersion struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Supported bool     `json:"supported"`
	Java     int32     `json:"java"`
	Builds   int64     `json:"builds"`
	Created  time.Time `json:"created"`
}

var buildColumnNames = []string{
	"id", "version_id", "project_version_id", "type", "experimental", "name",
	"build_number", "jar_url", "jar_size", "zip_url", "zip_size", "installation", "changes", "created",
}

const buildColumns = `id, version_id, project_version_id, type, experimental, name,
	build_number, jar_url, jar_size, zip_url, zip_size, installation, changes, created`

func scanBuild(row pgx.Row) (*Build, error) {
	return scanBuildRow(row)
}

// scanBuildRow scans the 14 build columns off row, then any caller-
// supplied trailing destinations from the same row, all in a single
// Scan call (pgx requires exactly one Scan per row, covering every
// selected column).
func scanBuildRow(row pgx.Row, trailing ...any) (*Build, error) {
	var b Build
	var rawType string
	var installation, changes []byte

	dest := append([]any{
		&b.ID, &b.VersionID, &b.ProjectVersionID, &rawType, &b.Experimental, &b.Name,
		&b.BuildNumber, &b.JarURL, &b.JarSize, &b.ZipURL, &b.ZipSize, &installation, &changes, &b.Created,
	}, trailing...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	t, err := servertype.Parse(rawType)
	if err != nil {
		return nil, err
	}
	b.Type = t

	if err := unmarshalJSONB(installation, &b.Installation); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(changes, &b.Changes); err != nil {
		return nil, err
	}

	return &b, nil
}

// hashColumnFor returns the build_hashes column that matches a v1
// identifier's length, mirroring by_v1_identifier's length-keyed hash
// dispatch (32/40/56/64/96/128 -> md5/sha1/sha224/sha256/sha384/sha512).
func hashColumnFor(identifier string) (string, bool) {
	switch len(identifier) {
	case 32:
		return "md5", true
	case 40:
		return "sha1", true
	case 56:
		return "sha224", true
	case 64:
		return "sha256", true
	case 96:
		return "sha384", true
	case 128:
		return "sha512", true
	default:
		return "", false
	}
}

// BuildByV1Identifier resolves a v1 identifier (a numeric build id, or a
// hex digest whose length selects the hash algorithm) to the matched
// build, the newest build sharing its (family, effective version), and a
// MinifiedVersion summary. Cached for an hour, matching
// build.rs's by_v1_identifier.
func BuildByV1Identifier(ctx context.Context, pool *pgxpool.Pool, c *cache.Client, identifier string) (*Build, *Build, *MinifiedVersion, error) {
	type result struct {
		Matched *Build
		Newest  *Build
		Version *MinifiedVersion
	}

	key := fmt.Sprintf("build::%s", identifier)
	r, err := cache.Cached(ctx, c, key, time.Hour, func(ctx context.Context) (result, error) {
		matched, err := lookupV1Build(ctx, pool, identifier)
		if err != nil {
			return result{}, err
		}
		if matched == nil {
			return result{}, nil
		}

		effectiveVersion := matched.VersionID
		if effectiveVersion == nil {
			effectiveVersion = matched.ProjectVersionID
		}
		if effectiveVersion == nil {
			return result{Matched: matched, Newest: matched, Version: zeroVersion(matched)}, nil
		}

		newest, buildCount, err := newestBuildForVersion(ctx, pool, matched.Type, *effectiveVersion)
		if err != nil {
			return result{}, err
		}
		if newest == nil {
			newest = matched
		}

		version, err := minifiedVersionFor(ctx, pool, newest, buildCount)
		if err != nil {
			return result{}, err
		}

		return result{Matched: matched, Newest: newest, Version: version}, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if r.Matched == nil {
		return nil, nil, nil, nil
	}

	return r.Matched, r.Newest, r.Version, nil
}

func lookupV1Build(ctx context.Context, pool *pgxpool.Pool, identifier string) (*Build, error) {
	if hashColumn, ok := hashColumnFor(identifier); ok {
		row := pool.QueryRow(ctx, fmt.Sprintf(`
			SELECT %s
			FROM build_hashes
			INNER JOIN builds ON builds.id = build_hashes.build_id
			WHERE build_hashes.%s = decode($1, 'hex')
			LIMIT 1
		`, prefixColumns("builds", buildColumns), hashColumn), identifier)
		return scanOptionalBuild(row)
	}

	id, err := strconv.Atoi(identifier)
	if err != nil || id < 1 {
		return nil, nil
	}

	row := pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM builds WHERE id = $1 LIMIT 1`, buildColumns), id)
	return scanOptionalBuild(row)
}

func scanOptionalBuild(row pgx.Row) (*Build, error) {
	b, err := scanBuild(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// newestBuildForVersion finds the highest-id build sharing the same
// effective version (version_id or project_version_id) and family,
// plus the total build count for that version. Does not reproduce
// build.rs's Arclight loader-suffix carve-out (matching only builds
// whose project_version_id shares the spec build's loader suffix); a
// production port would add that predicate back in.

func newestBuildForVersion(ctx context.Context, pool *pgxpool.Pool, t servertype.Type, effectiveVersion string) (*Build, int64, error) {
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM builds b
		WHERE COALESCE(b.version_id, b.project_version_id) = $1
			AND b.type = $2
		ORDER BY b.id DESC
		LIMIT 1
	`, prefixColumns("b", buildColumns)), effectiveVersion, string(t))

	build, err := scanOptionalBuild(row)
	if err != nil {
		return nil, 0, err
	}

	var count int64
	if err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM builds WHERE COALESCE(version_id, project_version_id) = $1
	`, effectiveVersion).Scan(&count); err != nil {
		return nil, 0, err
	}

	return build, count, nil
}

func minifiedVersionFor(ctx context.Context, pool *pgxpool.Pool, build *Build, buildCount int64) (*MinifiedVersion, error) {
	id := build.VersionID
	if id == nil {
		id = build.ProjectVersionID
	}
	if id == nil {
		return zeroVersion(build), nil
	}

	var versionType string
	var supported bool
	var java int32
	var created time.Time

	err := pool.QueryRow(ctx, `
		SELECT type::text, supported, java, created FROM minecraft_versions WHERE id = $1
	`, *id).Scan(&versionType, &supported, &java, &created)
	if err == pgx.ErrNoRows {
		return &MinifiedVersion{ID: *id, Type: "RELEASE", Supported: false, Java: 21, Builds: buildCount, Created: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}

	return &MinifiedVersion{ID: *id, Type: versionType, Supported: supported, Java: java, Builds: buildCount, Created: created}, nil
}

func zeroVersion(build *Build) *MinifiedVersion {
	id := ""
	if build.VersionID != nil {
		id = *build.VersionID
	} else if build.ProjectVersionID != nil {
		id = *build.ProjectVersionID
	}
	created := time.Now()
	if build.Created != nil {
		created = *build.Created
	}
	return &MinifiedVersion{ID: id, Type: "RELEASE", Supported: false, Java: 21, Builds: 1, Created: created}
}

// prefixColumns renders buildColumnNames each qualified with table,
// e.g. prefixColumns("b", ...) -> "b.id, b.version_id, ...".
func prefixColumns(table, _ string) string {
	out := make([]string, len(buildColumnNames))
	for i, col := range buildColumnNames {
		out[i] = table + "." + col
	}
	return strings.Join(out, ", ")
}
