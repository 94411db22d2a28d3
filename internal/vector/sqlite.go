package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS vectors (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	vector BLOB NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (collection, id)
);
`

// SQLite is a persistent Store backed by a local database file, so an
// indexed catalog survives restarts without re-embedding.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create vector db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create vector schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Exists(ctx context.Context, collection string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM collections WHERE name = ?`, collection).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup collection: %w", err)
	}
	return true, nil
}

func (s *SQLite) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

func (s *SQLite) Add(ctx context.Context, collection string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, collection); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO vectors (collection, id, vector, metadata) VALUES (?, ?, ?, ?)`,
			collection, r.ID, encodeVector(r.Vector), string(meta),
		)
		if err != nil {
			return fmt.Errorf("insert vector %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Nearest(ctx context.Context, collection string, vec []float32, k int) ([]Hit, error) {
	exists, err := s.Exists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNoCollection
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vector, metadata FROM vectors WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("scan vectors: %w", err)
	}
	defer rows.Close()

	// Brute force over the collection. Catalogs hold hundreds of clips,
	// not millions of documents; an ANN structure would be dead weight.
	var hits []Hit
	for rows.Next() {
		var (
			id   string
			blob []byte
			meta string
		)
		if err := rows.Scan(&id, &blob, &meta); err != nil {
			return nil, err
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode vector %s: %w", id, err)
		}
		var metadata map[string]string
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", id, err)
		}
		hits = append(hits, Hit{ID: id, Distance: cosineDistance(vec, stored), Metadata: metadata})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4+i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob) < 4 {
		return nil, fmt.Errorf("vector blob too short")
	}
	n := int(binary.LittleEndian.Uint32(blob[:4]))
	blob = blob[4:]
	if len(blob) != n*4 {
		return nil, fmt.Errorf("vector blob length mismatch")
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vec, nil
}
