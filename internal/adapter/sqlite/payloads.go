package sqlite

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// PayloadHash returns the archive key of a payload.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ArchivePayload stores a gzip-compressed copy of a raw provider response.
// Payloads already archived under the same hash are ignored.
func (s *Store) ArchivePayload(ctx context.Context, source string, payload []byte) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}

	hash := PayloadHash(payload)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_payloads (payload_hash, fetched_at, source, payload_compressed, size_bytes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, hash, time.Now().UTC().Format(timeFormat), source, buf.Bytes(), len(payload))
	if err != nil {
		return fmt.Errorf("insert raw payload: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("raw payload already archived", "hash", hash)
	}
	return nil
}
