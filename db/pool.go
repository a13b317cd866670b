// Package db wraps Postgres connection pooling for the registry's domain
// read models (C7). It generalizes the teacher's pgx wrapper
// (db/postgres_pgx.go) with the read/write pool split spec.md section 5
// requires ("writes go to the write pool, reads to the read pool if
// configured, otherwise to the write pool").
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mcjars/registry/config"
)

// Pool holds the write pool and, when DATABASE_URL_PRIMARY is configured,
// a separate read pool. Read() falls back to Write() otherwise, exactly as
// spec.md 5 specifies.
type Pool struct {
	write *pgxpool.Pool
	read  *pgxpool.Pool
}

// Connect opens the write pool (and, if configured, a distinct read pool),
// logs the server version the way the teacher's NewPostgresDB/Database::new
// do, and optionally kicks off the migration runner in the background.
func Connect(ctx context.Context, env *config.Env, logger zerolog.Logger) (*Pool, error) {
	start := time.Now()

	write, err := pgxpool.New(ctx, env.WriteDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("connect write pool: %w", err)
	}
	if err := write.Ping(ctx); err != nil {
		write.Close()
		return nil, fmt.Errorf("ping write pool: %w", err)
	}

	p := &Pool{write: write}

	if env.HasSeparateReadPool() {
		read, err := pgxpool.New(ctx, env.DatabaseURL)
		if err != nil {
			write.Close()
			return nil, fmt.Errorf("connect read pool: %w", err)
		}
		if err := read.Ping(ctx); err != nil {
			write.Close()
			read.Close()
			return nil, fmt.Errorf("ping read pool: %w", err)
		}
		p.read = read
	}

	var version string
	_ = p.write.QueryRow(ctx, "SELECT split_part(version(), ' ', 2)").Scan(&version)

	logger.Info().
		Str("version", version).
		Dur("took", time.Since(start)).
		Msg("database connected")

	if env.DatabaseMigrate {
		go func() {
			if err := RunMigrations(context.Background(), p.Write(), logger); err != nil {
				logger.Error().Err(err).Msg("database migration failed")
			}
		}()
	}

	if env.DatabaseRefresh {
		go p.refreshLoop(logger)
	}

	return p, nil
}

// Write returns the pool writes and consistency-sensitive reads go through.
func (p *Pool) Write() *pgxpool.Pool { return p.write }

// Read returns the read pool, falling back to the write pool when no
// separate reader is configured.
func (p *Pool) Read() *pgxpool.Pool {
	if p.read != nil {
		return p.read
	}
	return p.write
}

// Close releases both pools.
func (p *Pool) Close() {
	p.write.Close()
	if p.read != nil {
		p.read.Close()
	}
}

// UpdateCount performs the "counts" table upsert the Rust source's
// database.rs#update_count issues, used by C4's drain to publish the
// uncounted-request accumulator.
func (p *Pool) UpdateCount(ctx context.Context, key string, value int64) error {
	_, err := p.write.Exec(ctx,
		`INSERT INTO counts (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = counts.value + $2`,
		key, value)
	return err
}

// ResetCount overwrites (rather than accumulates) a counts row, used by
// the materialized-view refresh loop below.
func (p *Pool) ResetCount(ctx context.Context, key string, value int64) error {
	_, err := p.write.Exec(ctx,
		`INSERT INTO counts (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2`,
		key, value)
	return err
}

// refreshLoop is the 30-minute background task from spec.md 5: refresh the
// request-stats materialized views, then resynchronize the builds/
// build_hashes row counts, sleeping and continuing on failure.
func (p *Pool) refreshLoop(logger zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

		start := time.Now()
		if _, err := p.write.Exec(ctx, "REFRESH MATERIALIZED VIEW mv_requests_stats"); err != nil {
			logger.Error().Err(err).Msg("failed to refresh mv_requests_stats")
		}
		if _, err := p.write.Exec(ctx, "REFRESH MATERIALIZED VIEW mv_requests_stats_daily"); err != nil {
			logger.Error().Err(err).Msg("failed to refresh mv_requests_stats_daily")
		}
		logger.Info().Dur("took", time.Since(start)).Msg("materialized views refreshed")

		var builds, hashes int64
		if err := p.write.QueryRow(ctx, "SELECT COUNT(*) FROM builds").Scan(&builds); err != nil {
			logger.Error().Err(err).Msg("failed to count builds")
			cancel()
			continue
		}
		if err := p.write.QueryRow(ctx, "SELECT COUNT(*) FROM build_hashes").Scan(&hashes); err != nil {
			logger.Error().Err(err).Msg("failed to count build_hashes")
			cancel()
			continue
		}

		if err := p.ResetCount(ctx, "builds", builds); err != nil {
			logger.Error().Err(err).Msg("failed to reset builds count")
		}
		if err := p.ResetCount(ctx, "build_hashes", hashes); err != nil {
			logger.Error().Err(err).Msg("failed to reset build_hashes count")
		}

		logger.Info().Int64("builds", builds).Int64("build_hashes", hashes).Msg("counts updated")
		cancel()
	}
}

// UpdateFileLastAccess persists a new last-access timestamp for a file
// identified by its path-component array, matching the Rust source's
// files.rs flush-loop update. Satisfies filecache.LastAccessStore.
func (p *Pool) UpdateFileLastAccess(ctx context.Context, pathComponents []string, at time.Time) error {
	_, err := p.write.Exec(ctx,
		`UPDATE files SET last_access = $2 WHERE path = $1::varchar[] AND (last_access IS NULL OR last_access < $2)`,
		pathComponents, at)
	return err
}

// QuoteIdentifierArray renders a Postgres text[] literal from path
// components. UpdateFileLastAccess does not use it; it passes the
// components to pgx as a parameter directly.
func QuoteIdentifierArray(parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = strings.ReplaceAll(p, `"`, `\"`)
	}
	return "{" + strings.Join(quoted, ",") + "}"
}
