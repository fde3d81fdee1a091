package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/vectormath"
)

// vectorStore implements driven.VectorStore for one collection.
type vectorStore struct {
	store      *Store
	collection string
}

var _ driven.VectorStore = (*vectorStore)(nil)

// columnFields maps metadata fields to the columns that hold them.
var columnFields = map[string]string{
	domain.MetaSource:      "source",
	domain.MetaChunkIndex:  "chunk_index",
	domain.MetaContentHash: "content_hash",
}

// hashLookupBatch bounds the parameters of one content hash lookup.
const hashLookupBatch = 500

// Insert stores entries in one transaction, skipping content hashes the
// collection already holds.
func (v *vectorStore) Insert(ctx context.Context, entries []domain.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	dim := len(entries[0].Embedding)
	if dim == 0 {
		return 0, fmt.Errorf("inserting entries: %w: empty embedding", domain.ErrDimensionMismatch)
	}
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return 0, fmt.Errorf("inserting entries: %w: entry %d has %d values, batch has %d",
				domain.ErrDimensionMismatch, i, len(e.Embedding), dim)
		}
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Writing first takes the database write lock before the dimension is read.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, created_at) VALUES (?, 0, ?)
		 ON CONFLICT(name) DO NOTHING`,
		v.collection, time.Now().UTC()); err != nil {
		return 0, storageErr("creating collection", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE collections SET dimension = ? WHERE name = ? AND dimension = 0",
		dim, v.collection); err != nil {
		return 0, storageErr("fixing collection dimension", err)
	}

	var storedDim int
	if err := tx.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", v.collection).Scan(&storedDim); err != nil {
		return 0, storageErr("reading collection dimension", err)
	}
	if storedDim != dim {
		return 0, fmt.Errorf("inserting entries: %w: collection %q has dimension %d, got %d",
			domain.ErrDimensionMismatch, v.collection, storedDim, dim)
	}

	existing, err := storedHashes(ctx, tx, v.collection, entries)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (id, collection, text, source, chunk_index, content_hash, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, storageErr("preparing insert", err)
	}
	defer stmt.Close()

	stored := 0
	for _, e := range entries {
		if h := e.Chunk.ContentHash; h != "" {
			if _, dup := existing[h]; dup {
				continue
			}
			existing[h] = struct{}{}
		}
		metaJSON, err := json.Marshal(e.Chunk.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshalling metadata for %s: %w", e.Chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.Chunk.ID,
			v.collection,
			e.Chunk.Text,
			e.Chunk.Source,
			e.Chunk.ChunkIndex,
			e.Chunk.ContentHash,
			float32SliceToBytes(e.Embedding),
			string(metaJSON),
		); err != nil {
			return 0, storageErr("inserting entry "+e.Chunk.ID, err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("committing entries", err)
	}
	return stored, nil
}

// storedHashes returns the content hashes of entries already in collection.
func storedHashes(ctx context.Context, tx *sql.Tx, collection string, entries []domain.IndexEntry) (map[string]struct{}, error) {
	hashes := make([]any, 0, len(entries))
	for _, e := range entries {
		if e.Chunk.ContentHash != "" {
			hashes = append(hashes, e.Chunk.ContentHash)
		}
	}

	found := make(map[string]struct{})
	for start := 0; start < len(hashes); start += hashLookupBatch {
		batch := hashes[start:min(start+hashLookupBatch, len(hashes))]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		rows, err := tx.QueryContext(ctx,
			"SELECT content_hash FROM entries WHERE collection = ? AND content_hash IN ("+placeholders+")",
			append([]any{collection}, batch...)...)
		if err != nil {
			return nil, storageErr("looking up content hashes", err)
		}
		for rows.Next() {
			var h string
			if err := rows.Scan(&h); err != nil {
				rows.Close()
				return nil, storageErr("scanning content hash", err)
			}
			found[h] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, storageErr("reading content hashes", err)
		}
	}
	return found, nil
}

// Search scores every matching entry against query.
func (v *vectorStore) Search(ctx context.Context, query []float32, k int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}

	dim, err := v.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != dim {
		return nil, fmt.Errorf("searching: %w: query has %d values, collection has %d",
			domain.ErrDimensionMismatch, len(query), dim)
	}

	where, args := pushdown(filter)
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT seq, id, text, source, chunk_index, content_hash, embedding, metadata
		FROM entries WHERE collection = ?`+where,
		append([]any{v.collection}, args...)...)
	if err != nil {
		return nil, storageErr("querying entries", err)
	}
	defer rows.Close()

	var candidates []vectormath.Candidate[domain.Chunk]
	for rows.Next() {
		var (
			seq       int64
			chunk     domain.Chunk
			embedding []byte
			metaJSON  string
		)
		if err := rows.Scan(&seq, &chunk.ID, &chunk.Text, &chunk.Source, &chunk.ChunkIndex,
			&chunk.ContentHash, &embedding, &metaJSON); err != nil {
			return nil, storageErr("scanning entry", err)
		}
		chunk.Metadata, err = decodeMetadata(metaJSON)
		if err != nil {
			return nil, storageErr("decoding metadata for "+chunk.ID, err)
		}
		if !filter.Match(chunk.AllMetadata()) {
			continue
		}
		candidates = append(candidates, vectormath.Candidate[domain.Chunk]{
			Item:     chunk,
			Seq:      seq,
			Distance: vectormath.CosineDistance(query, bytesToFloat32Slice(embedding)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating entries", err)
	}

	top := vectormath.TopK(candidates, k)
	results := make([]domain.SearchResult, len(top))
	for i, c := range top {
		results[i] = domain.SearchResult{Chunk: c.Item, Distance: c.Distance}
	}
	return results, nil
}

// pushdown turns equality conditions on indexed columns into SQL so fewer
// rows are decoded. The full filter is still applied afterwards.
func pushdown(filter *domain.Filter) (string, []any) {
	if filter.IsEmpty() {
		return "", nil
	}
	var (
		clauses []string
		args    []any
	)
	for _, c := range filter.Conditions {
		col, ok := columnFields[c.Field]
		if !ok || c.Op != domain.OpEq || col == "chunk_index" {
			continue
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, c.Values[0])
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// Count returns the number of entries in the collection.
func (v *vectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE collection = ?", v.collection).Scan(&n); err != nil {
		return 0, storageErr("counting entries", err)
	}
	return n, nil
}

// Delete removes entries by ID.
func (v *vectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM entries WHERE collection = ? AND id = ?", v.collection, id); err != nil {
			return storageErr("deleting entry "+id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing delete", err)
	}
	return nil
}

// DeleteBySource removes all entries of one source.
func (v *vectorStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := v.store.db.ExecContext(ctx,
		"DELETE FROM entries WHERE collection = ? AND source = ?", v.collection, source)
	if err != nil {
		return 0, storageErr("deleting source "+source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("deleting source "+source, err)
	}
	return int(n), nil
}

// Clear removes all entries and resets the collection dimension.
func (v *vectorStore) Clear(ctx context.Context) error {
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE collection = ?", v.collection); err != nil {
		return storageErr("clearing entries", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE collections SET dimension = 0 WHERE name = ?", v.collection); err != nil {
		return storageErr("resetting collection", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing clear", err)
	}
	return nil
}

// ScanMetadata returns the distinct non-empty values of field.
func (v *vectorStore) ScanMetadata(ctx context.Context, field string) (map[string]struct{}, error) {
	if !domain.ValidField(field) {
		return nil, fmt.Errorf("%w: bad field name %q", domain.ErrInvalidFilter, field)
	}

	// field is validated above, so it is safe to splice into the JSON path.
	expr := "json_extract(metadata, '$." + field + "')"
	if col, ok := columnFields[field]; ok {
		expr = col
	}

	rows, err := v.store.db.QueryContext(ctx,
		"SELECT DISTINCT "+expr+" FROM entries WHERE collection = ?", v.collection)
	if err != nil {
		return nil, storageErr("scanning metadata "+field, err)
	}
	defer rows.Close()

	values := make(map[string]struct{})
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, storageErr("scanning metadata "+field, err)
		}
		if b, ok := raw.([]byte); ok {
			raw = string(b)
		}
		if s := domain.FormatValue(raw); s != "" {
			values[s] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("scanning metadata "+field, err)
	}
	return values, nil
}

// Dimension returns the collection's vector length, or 0 if unset.
func (v *vectorStore) Dimension(ctx context.Context) (int, error) {
	var dim int
	err := v.store.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", v.collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("reading collection dimension", err)
	}
	return dim, nil
}

// Collection returns the collection name.
func (v *vectorStore) Collection() string {
	return v.collection
}

// Location returns the database file path.
func (v *vectorStore) Location() string {
	return v.store.path
}

// Close is a no-op; the owning Store holds the connection.
func (v *vectorStore) Close() error {
	return nil
}

// decodeMetadata parses stored metadata, keeping integers as int.
func decodeMetadata(s string) (domain.Metadata, error) {
	if s == "" || s == "null" {
		return domain.Metadata{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var m domain.Metadata
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = domain.Metadata{}
	}
	for k, val := range m {
		if n, ok := val.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				m[k] = int(i)
			} else if f, err := n.Float64(); err == nil {
				m[k] = f
			}
		}
	}
	return m, nil
}
