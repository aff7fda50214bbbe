package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// initVectorExtension registers sqlite-vec with every future sqlite3
// connection. Must run once per process before opening any store.
func initVectorExtension() {
	sqlite_vec.Auto()
}

// createVectorIndex creates the vec0 virtual table backing cosine KNN
// queries over both code and doc chunk embeddings, keyed by chunk identity
// the same way code_chunks/doc_chunks are.
func createVectorIndex(db *sql.DB, dimensions int) error {
	ddl := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(
			identity TEXT PRIMARY KEY,
			embedding float[%d]
		)
	`, dimensions)
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("store: create chunk_vectors: %w", err)
	}
	return nil
}

// upsertVector replaces the vector stored for identity. vec0 virtual tables
// have no INSERT OR REPLACE, so delete-then-insert is the upsert idiom.
func upsertVector(tx *sql.Tx, identity string, embedding []float32) error {
	if _, err := tx.Exec(`DELETE FROM chunk_vectors WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("store: delete stale vector for %s: %w", identity, err)
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("store: serialize embedding for %s: %w", identity, err)
	}

	if _, err := tx.Exec(`INSERT INTO chunk_vectors (identity, embedding) VALUES (?, ?)`, identity, blob); err != nil {
		return fmt.Errorf("store: insert vector for %s: %w", identity, err)
	}
	return nil
}

func deleteVector(tx *sql.Tx, identity string) error {
	_, err := tx.Exec(`DELETE FROM chunk_vectors WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("store: delete vector for %s: %w", identity, err)
	}
	return nil
}

// fetchVector returns the stored embedding for identity, or nil if none is
// stored. vec0's float[N] columns are packed little-endian IEEE754 float32
// arrays, the same layout SerializeFloat32 produces on the write side.
func fetchVector(db *sql.DB, identity string) ([]float32, error) {
	var blob []byte
	err := db.QueryRow(`SELECT embedding FROM chunk_vectors WHERE identity = ?`, identity).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading vector for %s: %w", identity, err)
	}
	return deserializeFloat32(blob), nil
}

func deserializeFloat32(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}

// VectorNeighbor is one result of a KNN query against chunk_vectors.
type VectorNeighbor struct {
	Identity string
	Distance float64 // cosine distance; lower is more similar
}

// queryNearest returns the k closest vectors to query by cosine distance.
func queryNearest(db *sql.DB, query []float32, k int) ([]VectorNeighbor, error) {
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("store: serialize query vector: %w", err)
	}

	rows, err := db.Query(
		`SELECT identity, vec_distance_cosine(embedding, ?) AS distance
		 FROM chunk_vectors
		 ORDER BY distance
		 LIMIT ?`,
		blob, k,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query chunk_vectors: %w", err)
	}
	defer rows.Close()

	var results []VectorNeighbor
	for rows.Next() {
		var n VectorNeighbor
		if err := rows.Scan(&n.Identity, &n.Distance); err != nil {
			return nil, fmt.Errorf("store: scan vector neighbor: %w", err)
		}
		results = append(results, n)
	}
	return results, rows.Err()
}
