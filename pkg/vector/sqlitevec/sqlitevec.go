// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/vector"
)

// filterColumns maps filter field names to chunk table columns. Only fields
// listed here can appear in a filter; anything else is rejected up front.
var filterColumns = map[string]string{
	vector.FieldUserID:       "user_id",
	vector.FieldSessionID:    "session_id",
	vector.FieldMessageIndex: "message_index",
	vector.FieldType:         "chunk_type",
	vector.FieldChunkID:      "chunk_id",
}

// Index implements vector.Index using SQLite with sqlite-vec.
type Index struct {
	db         *sql.DB
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// Must be configured; it is fixed for the lifetime of the collection.
	Dimensions uint
}

// NewIndex opens a sqlite-vec backed index. An existing database file is
// attached to, not recreated; a new path gets an empty collection.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// Chunk table holds text and metadata. vec0 virtual tables use integer
	// rowids, so this table also maps string record IDs to rowids.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			message_index TEXT NOT NULL DEFAULT '',
			chunk_type TEXT NOT NULL DEFAULT '',
			chunk_id TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_memory_chunks_scope
		ON memory_chunks (user_id, session_id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating scope index: %w", err)
	}

	// vec0 virtual table for embedding storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS memory_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Index{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert stores records durably and returns the assigned IDs in input order.
func (x *Index) Upsert(ctx context.Context, records []vector.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	for _, rec := range records {
		if uint(len(rec.Embedding)) != x.dimensions {
			return nil, fmt.Errorf("%w: record has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, len(rec.Embedding), x.dimensions)
		}
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", vector.ErrConnection, err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		embBlob := serializeFloat32(rec.Embedding)
		md := rec.Metadata

		// Check if the record already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM memory_chunks WHERE record_id = ?`, id,
		).Scan(&existingRowID)

		switch err {
		case nil:
			// Record exists — replace content, metadata, and embedding
			if _, err := tx.ExecContext(ctx,
				`UPDATE memory_chunks
				 SET content = ?, user_id = ?, session_id = ?, message_index = ?, chunk_type = ?, chunk_id = ?
				 WHERE rowid = ?`,
				rec.Content, md[vector.FieldUserID], md[vector.FieldSessionID],
				md[vector.FieldMessageIndex], md[vector.FieldType], md[vector.FieldChunkID],
				existingRowID,
			); err != nil {
				return nil, fmt.Errorf("updating record %s: %w", id, err)
			}

			// Update embedding in vec0 table via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM memory_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return nil, fmt.Errorf("deleting old embedding for record %s: %w", id, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO memory_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return nil, fmt.Errorf("re-inserting embedding for record %s: %w", id, err)
			}
		case sql.ErrNoRows:
			// New record — insert into the chunk table first to get the rowid
			result, err := tx.ExecContext(ctx,
				`INSERT INTO memory_chunks(record_id, content, user_id, session_id, message_index, chunk_type, chunk_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, rec.Content, md[vector.FieldUserID], md[vector.FieldSessionID],
				md[vector.FieldMessageIndex], md[vector.FieldType], md[vector.FieldChunkID],
			)
			if err != nil {
				return nil, fmt.Errorf("inserting record %s: %w", id, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("getting rowid for record %s: %w", id, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO memory_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return nil, fmt.Errorf("inserting embedding for record %s: %w", id, err)
			}
		default:
			return nil, fmt.Errorf("checking for existing record %s: %w", id, err)
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing transaction: %v", vector.ErrConnection, err)
	}

	x.logger.Debug("upserted records into sqlite-vec",
		zap.Int("count", len(records)),
	)

	return ids, nil
}

// filterClause renders the filter as a SQL predicate over memory_chunks
// columns. Returns an empty clause for an empty filter.
func filterClause(filter vector.Filter) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	if len(filter) == 0 {
		return "", nil, nil
	}

	conds := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	for _, p := range filter {
		conds = append(conds, fmt.Sprintf("%s = ?", filterColumns[p.Field]))
		args = append(args, p.Value)
	}
	return strings.Join(conds, " AND "), args, nil
}

// Query returns up to topK records matching the filter, ascending by
// distance. KNN candidates are constrained to the filter's rowids via a
// rowid IN (...) pre-selection, so the filter never eats into topK.
func (x *Index) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if uint(len(embedding)) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), x.dimensions)
	}

	clause, args, err := filterClause(filter)
	if err != nil {
		return nil, err
	}

	queryBlob := serializeFloat32(embedding)

	// KNN via vec0 MATCH, joined back to chunk text and metadata.
	q := `
		SELECT
			c.record_id,
			c.content,
			c.user_id,
			c.session_id,
			c.message_index,
			c.chunk_type,
			c.chunk_id,
			e.distance
		FROM memory_embeddings e
		INNER JOIN memory_chunks c ON c.rowid = e.rowid
		WHERE e.embedding MATCH ?
			AND e.k = ?`
	queryArgs := []any{queryBlob, topK}
	if clause != "" {
		q += fmt.Sprintf(`
			AND e.rowid IN (SELECT rowid FROM memory_chunks WHERE %s)`, clause)
		queryArgs = append(queryArgs, args...)
	}
	q += `
		ORDER BY e.distance`

	rows, err := x.db.QueryContext(ctx, q, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", vector.ErrConnection, err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var rec vector.Record
		var userID, sessionID, messageIndex, chunkType, chunkID string
		var distance float64
		if err := rows.Scan(&rec.ID, &rec.Content, &userID, &sessionID, &messageIndex, &chunkType, &chunkID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		rec.Metadata = map[string]string{
			vector.FieldUserID:       userID,
			vector.FieldSessionID:    sessionID,
			vector.FieldMessageIndex: messageIndex,
			vector.FieldType:         chunkType,
			vector.FieldChunkID:      chunkID,
		}

		results = append(results, vector.QueryResult{
			Record: rec,
			Score:  float32(distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	x.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteWhere removes every record matching the filter and reports how many
// were deleted.
func (x *Index) DeleteWhere(ctx context.Context, filter vector.Filter) (int, error) {
	clause, args, err := filterClause(filter)
	if err != nil {
		return 0, err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %v", vector.ErrConnection, err)
	}
	defer tx.Rollback()

	q := `SELECT rowid FROM memory_chunks`
	if clause != "" {
		q += " WHERE " + clause
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM memory_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return 0, fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM memory_chunks WHERE rowid = ?`, rowID,
		); err != nil {
			return 0, fmt.Errorf("deleting chunk rowid %d: %w", rowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing transaction: %v", vector.ErrConnection, err)
	}

	x.logger.Debug("deleted records from sqlite-vec",
		zap.Int("count", len(rowIDs)),
	)

	return len(rowIDs), nil
}

// Count returns the total number of records in the collection.
func (x *Index) Count(ctx context.Context) (int, error) {
	var count int
	if err := x.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_chunks`,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting records: %v", vector.ErrConnection, err)
	}
	return count, nil
}

// Close releases resources held by the index.
func (x *Index) Close() error {
	return x.db.Close()
}

var _ vector.Index = (*Index)(nil)
