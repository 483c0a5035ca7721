package vector

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/pkg/types"
)

// Store is a cosine-similarity vector store backed by SQLite. The corpus it
// holds is small and fixed, so nearest-neighbor search is a full scan.
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// New creates a Store over an open database.
func New(db *sql.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// CollectionExists reports whether the knowledge collection has been created.
func (s *Store) CollectionExists() (bool, error) {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'knowledge_points'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return true, nil
}

// EnsureCollection creates the knowledge collection if it does not exist.
func (s *Store) EnsureCollection() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS knowledge_points (
			id INTEGER PRIMARY KEY,
			embedding BLOB NOT NULL,
			payload TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// UpsertPoint writes a knowledge point, replacing any existing point with
// the same id.
func (s *Store) UpsertPoint(point types.KnowledgePoint) error {
	blob, err := encodeVector(point.Vector)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO knowledge_points (id, embedding, payload) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			payload = excluded.payload`,
		point.ID, blob, point.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// SearchNearest returns up to k points ordered by descending cosine
// similarity to the query vector.
func (s *Store) SearchNearest(query []float32, k int) ([]types.ScoredPoint, error) {
	rows, err := s.db.Query("SELECT embedding, payload FROM knowledge_points")
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}
	defer rows.Close()

	var scored []types.ScoredPoint
	for rows.Next() {
		var blob []byte
		var payload string
		if err := rows.Scan(&blob, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decode vector: %w", err)
		}
		scored = append(scored, types.ScoredPoint{
			Payload: payload,
			Score:   cosine(query, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate points: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func encodeVector(vec []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob of %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
