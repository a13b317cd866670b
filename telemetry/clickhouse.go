package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/mcjars/registry/config"
)

// methodCode mirrors requests.rs's ClickhouseRequest::from Method mapping.
func methodCode(method string) int8 {
	switch method {
	case "GET":
		return 1
	case "POST":
		return 2
	case "PUT":
		return 3
	case "DELETE":
		return 4
	case "PATCH":
		return 5
	case "OPTIONS":
		return 6
	case "HEAD":
		return 7
	default:
		return 1
	}
}

// ClickhouseStore is the analytical-store sink the drain loop bulk
// inserts into, one batch per Process call. Grounded on
// original_source/backend/src/clickhouse.rs's thin client wrapper, with
// the dependency itself sourced from the ClickHouse Go driver (not
// present in the teacher's go.mod, but present in other pack manifests —
// see DESIGN.md).
type ClickhouseStore struct {
	conn clickhouse.Conn
}

// OpenClickhouse connects using the native protocol, matching
// clickhouse.rs's client construction against CLICKHOUSE_URL/DATABASE.
func OpenClickhouse(env *config.Env) (*ClickhouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{env.ClickhouseURL},
		Auth: clickhouse.Auth{
			Database: env.ClickhouseDatabase,
			Username: env.ClickhouseUsername,
			Password: env.ClickhousePassword,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &ClickhouseStore{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *ClickhouseStore) Close() error { return s.conn.Close() }

// InsertRequests bulk-inserts a drained batch into the "requests" table,
// serializing each record with the fixed schema requests.rs's
// ClickhouseRequest describes: IPv4 mapped to ::ffff:a.b.c.d, method as
// a small int, body/data JSON-stringified, millisecond timestamps.
func (s *ClickhouseStore) InsertRequests(ctx context.Context, batch []*Request) error {
	b, err := s.conn.PrepareBatch(ctx, "INSERT INTO requests")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range batch {
		var bodyJSON, dataJSON *string
		if r.Body != nil {
			raw, err := json.Marshal(r.Body)
			if err == nil {
				s := string(raw)
				bodyJSON = &s
			}
		}
		if r.Data != nil {
			raw, err := json.Marshal(r.Data)
			if err == nil {
				s := string(raw)
				dataJSON = &s
			}
		}

		var continent, country *string
		if r.Continent != "" {
			continent = &r.Continent
		}
		if r.Country != "" {
			country = &r.Country
		}

		var orgID *string
		if r.OrganizationID != "" {
			orgID = &r.OrganizationID
		}

		ip := r.IP.To16()

		if err := b.Append(
			r.ID,
			orgID,
			r.Origin,
			methodCode(r.Method),
			r.Path,
			r.Time,
			r.Status,
			bodyJSON,
			dataJSON,
			ip,
			continent,
			country,
			r.UserAgent,
			r.Created,
		); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}

	if err := b.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
