package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"flowmap/internal/types"
	"flowmap/internal/util/jsonutil"
)

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS graph_documents (
    id             TEXT PRIMARY KEY,
    format_version INTEGER     NOT NULL,
    generated_at   TIMESTAMPTZ,
    document       JSONB       NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresMirror upserts the committed graph document into a Postgres table
// so dashboard collaborators can read it without touching the data
// directory. Like every side export it is best-effort.
type PostgresMirror struct {
	db *sql.DB
	id string
}

// NewPostgresMirror connects via the pgx database/sql driver and ensures
// the mirror table exists.
func NewPostgresMirror(ctx context.Context, dsn, documentID string) (*PostgresMirror, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres mirror: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres mirror: %w", err)
	}
	if _, err := db.ExecContext(ctx, mirrorSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure mirror table: %w", err)
	}
	if documentID == "" {
		documentID = "current"
	}
	return &PostgresMirror{db: db, id: documentID}, nil
}

func (m *PostgresMirror) Name() string { return "postgres mirror" }

func (m *PostgresMirror) Export(ctx context.Context, g *types.Graph) error {
	if m == nil || m.db == nil || g == nil {
		return nil
	}
	doc, err := jsonutil.MarshalNoEscape(g)
	if err != nil {
		return fmt.Errorf("marshal graph for mirror: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO graph_documents (id, format_version, generated_at, document, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			format_version = EXCLUDED.format_version,
			generated_at   = EXCLUDED.generated_at,
			document       = EXCLUDED.document,
			updated_at     = now()`,
		m.id, g.FormatVersion, g.GeneratedAt, doc)
	return err
}

// Close releases the database handle.
func (m *PostgresMirror) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}
