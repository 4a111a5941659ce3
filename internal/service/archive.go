package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Archiver stores a finished statement. storage.S3Client implements it.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// StatementKey is where a statement generated at t is archived.
func StatementKey(userID, ext string, t time.Time) string {
	return fmt.Sprintf("statements/%s/%s.%s", userID, t.UTC().Format("20060102T150405Z"), ext)
}

// ArchiveStatement uploads a copy of a statement. A nil archiver disables
// archiving. Failures are only logged, the download goes ahead regardless.
func ArchiveStatement(ctx context.Context, a Archiver, userID, ext string, data []byte, t time.Time) {
	if a == nil {
		return
	}

	key := StatementKey(userID, ext, t)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	loc, err := a.Put(ctx, key, data)
	if err != nil {
		zap.L().Error("Failed to archive statement", zap.Error(err), zap.String("userID", userID), zap.String("key", key))
		return
	}

	zap.L().Debug("Archived statement", zap.String("key", key), zap.String("location", loc))
}
