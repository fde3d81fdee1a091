package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// metadataScanner recovers stored metadata values.
type metadataScanner interface {
	ScanMetadata(ctx context.Context, field string) (map[string]struct{}, error)
}

// ContentHash returns the hex sha256 digest of text with surrounding
// whitespace removed.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// DedupResult is the outcome of filtering one batch.
type DedupResult struct {
	// Unique are the chunks to store, with ContentHash set.
	Unique []domain.Chunk

	// Skipped counts chunks dropped as duplicates.
	Skipped int

	// Empty counts chunks dropped for having no text.
	Empty int

	// Hashes are the hashes reserved for Unique, for Release on failure.
	Hashes []string
}

// Deduplicator drops chunks whose content is already stored.
//
// The seen set is seeded from the collection's stored content hashes on
// first use, so duplicates are detected across process restarts.
type Deduplicator struct {
	mu      sync.Mutex
	scanner metadataScanner
	seen    map[string]struct{}
	seeded  bool
}

// NewDeduplicator creates a deduplicator backed by scanner.
func NewDeduplicator(scanner metadataScanner) *Deduplicator {
	return &Deduplicator{
		scanner: scanner,
		seen:    make(map[string]struct{}),
	}
}

// Filter keeps the first chunk of every distinct content and reserves
// its hash. Failure to seed from storage is returned and retried on the
// next call.
func (d *Deduplicator) Filter(ctx context.Context, chunks []domain.Chunk) (*DedupResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.seed(ctx); err != nil {
		return nil, err
	}

	res := &DedupResult{Unique: make([]domain.Chunk, 0, len(chunks))}
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			res.Empty++
			continue
		}
		hash := ContentHash(c.Text)
		if _, ok := d.seen[hash]; ok {
			res.Skipped++
			continue
		}
		d.seen[hash] = struct{}{}
		c.ContentHash = hash
		res.Unique = append(res.Unique, c)
		res.Hashes = append(res.Hashes, hash)
	}
	return res, nil
}

// seed loads stored hashes once (caller must hold lock).
func (d *Deduplicator) seed(ctx context.Context) error {
	if d.seeded {
		return nil
	}
	stored, err := d.scanner.ScanMetadata(ctx, domain.MetaContentHash)
	if err != nil {
		return fmt.Errorf("loading stored content hashes: %w", err)
	}
	for h := range stored {
		d.seen[h] = struct{}{}
	}
	d.seeded = true
	logger.Debug("Dedup seeded with %d stored hashes", len(stored))
	return nil
}

// Release forgets hashes reserved by a batch that was not stored.
func (d *Deduplicator) Release(hashes []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range hashes {
		delete(d.seen, h)
	}
}

// Reset empties the seen set. It is reseeded from storage on next use.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{})
	d.seeded = false
}
