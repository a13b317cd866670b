package models

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// File is one entry under a build's installed file tree: either a leaf
// file with its digests in every supported algorithm, or a synthetic
// directory entry whose Size is the sum of everything beneath it.
// Matches file.rs's File.
type File struct {
	Name        string
	IsDirectory bool
	Size        int64

	MD5    []byte
	SHA1   []byte
	SHA224 []byte
	SHA256 []byte
	SHA384 []byte
	SHA512 []byte

	LastAccess *time.Time
}

// splitPath turns a slash-separated request path into the non-empty
// segment array files.path is stored as, matching the Rust side's
// Path::components filter.
func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// FileByPath resolves a single file by its exact path, matching
// File::by_path.
func FileByPath(ctx context.Context, pool *pgxpool.Pool, path string) (*File, error) {
	row := pool.QueryRow(ctx, `
		SELECT
			files.path[array_upper(files.path, 1)],
			files.size::int8,
			files.md5, files.sha1, files.sha224, files.sha256, files.sha384, files.sha512,
			files.last_access
		FROM files
		WHERE files.path = $1::varchar[]
	`, splitPath(path))

	var f File
	err := row.Scan(&f.Name, &f.Size, &f.MD5, &f.SHA1, &f.SHA224, &f.SHA256, &f.SHA384, &f.SHA512, &f.LastAccess)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// FilesForRoot lists the immediate children of root: every file or
// directory one path segment deeper than root, with directory sizes
// rolled up from everything beneath them. Matches File::all_for_root's
// prefix/path_info/directory_check CTE.
func FilesForRoot(ctx context.Context, pool *pgxpool.Pool, root string) ([]File, error) {
	rows, err := pool.Query(ctx, `
		WITH prefix AS (
			SELECT $1::varchar[] AS arr
		),
		prefix_length AS (
			SELECT COALESCE(array_length(arr, 1), 0) AS len, arr
			FROM prefix
		),
		path_info AS (
			SELECT
				path[prefix_length.len + 1] AS current_entry,
				array_length(path, 1) AS path_len,
				files.*
			FROM files, prefix_length
			WHERE
				array_length(path, 1) >= prefix_length.len + 1
				AND (
					prefix_length.len = 0
					OR path[1:prefix_length.len] = prefix_length.arr
				)
		),
		directory_check AS (
			SELECT
				current_entry,
				MAX(CASE WHEN path_len > (SELECT len FROM prefix_length) + 1 THEN 1 ELSE 0 END)::boolean AS is_directory,
				SUM(size) AS total_size
			FROM path_info
			WHERE current_entry IS NOT NULL
			GROUP BY current_entry
		)
		SELECT DISTINCT ON (pi.current_entry)
			pi.current_entry,
			CASE WHEN dc.is_directory THEN dc.total_size ELSE pi.size END AS total_size,
			pi.md5, pi.sha1, pi.sha224, pi.sha256, pi.sha384, pi.sha512, pi.last_access,
			dc.is_directory
		FROM path_info pi
		JOIN directory_check dc ON pi.current_entry = dc.current_entry
		WHERE pi.current_entry IS NOT NULL
		ORDER BY pi.current_entry, pi.path_len
	`, splitPath(root))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Name, &f.Size, &f.MD5, &f.SHA1, &f.SHA224, &f.SHA256, &f.SHA384, &f.SHA512, &f.LastAccess, &f.IsDirectory); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
