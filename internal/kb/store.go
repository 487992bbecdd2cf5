package kb

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

// Store caches chunk embeddings in a local sqlite file so restarts skip
// re-embedding unchanged guideline documents.
type Store struct {
	db      *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path TEXT PRIMARY KEY,
	hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	doc TEXT NOT NULL,
	seq INTEGER NOT NULL,
	text TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc);
`

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, encoder: encoder, decoder: decoder}, nil
}

func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

// DocHash returns the stored content hash for a document path.
func (s *Store) DocHash(path string) (string, bool, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM documents WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// ReplaceDoc swaps the cached chunks for a document in one transaction.
func (s *Store) ReplaceDoc(path, hash string, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE doc = ?`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO documents (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash`, path, hash); err != nil {
		return err
	}
	for i, chunk := range chunks {
		blob := s.encodeVector(vectors[i])
		if _, err := tx.Exec(
			`INSERT INTO chunks (doc, seq, text, embedding) VALUES (?, ?, ?, ?)`,
			path, i, chunk, blob); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Chunks loads the cached chunks for a document in sequence order.
func (s *Store) Chunks(path string) ([]string, [][]float32, error) {
	rows, err := s.db.Query(
		`SELECT text, embedding FROM chunks WHERE doc = ? ORDER BY seq`, path)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var texts []string
	var vectors [][]float32
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, nil, err
		}
		vec, err := s.decodeVector(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("decode embedding for %s: %w", path, err)
		}
		texts = append(texts, text)
		vectors = append(vectors, vec)
	}
	return texts, vectors, rows.Err()
}

func (s *Store) encodeVector(vec []float32) []byte {
	raw := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return s.encoder.EncodeAll(raw, nil)
}

func (s *Store) decodeVector(blob []byte) ([]float32, error) {
	raw, err := s.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}
