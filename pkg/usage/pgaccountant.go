package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGAccountant computes usage from the galleries and media tables.
//
// Storage is measured, not estimated: media rows persist the real byte size
// captured at upload time, and usage is their sum. Galleries are an exact
// row count.
type PGAccountant struct {
	pool *pgxpool.Pool
}

func NewPGAccountant(pool *pgxpool.Pool) *PGAccountant {
	if pool == nil {
		panic("usage: pgxpool is required")
	}
	return &PGAccountant{pool: pool}
}

func (a *PGAccountant) Usage(ctx context.Context, tenantID uuid.UUID) (Snapshot, error) {
	var s Snapshot

	// Single round trip; both aggregates are tenant-scoped.
	err := a.pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(m.size_bytes), 0) FROM media m WHERE m.tenant_id = $1),
			(SELECT COUNT(*) FROM galleries g WHERE g.tenant_id = $1)`,
		tenantID,
	).Scan(&s.StorageUsedBytes, &s.GalleriesUsed)
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage query: %w", err)
	}

	return s, nil
}

// EstimatingAccountant approximates storage as media row count times an
// average object size. Kept for deployments whose media rows predate size
// tracking; prefer PGAccountant wherever real sizes exist.
type EstimatingAccountant struct {
	pool            *pgxpool.Pool
	averagePerMedia int64
}

func NewEstimatingAccountant(pool *pgxpool.Pool, averageBytesPerMedia int64) *EstimatingAccountant {
	if pool == nil {
		panic("usage: pgxpool is required")
	}
	if averageBytesPerMedia <= 0 {
		panic("usage: averageBytesPerMedia must be positive")
	}
	return &EstimatingAccountant{pool: pool, averagePerMedia: averageBytesPerMedia}
}

func (a *EstimatingAccountant) Usage(ctx context.Context, tenantID uuid.UUID) (Snapshot, error) {
	var mediaCount, galleries int64

	err := a.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM media m WHERE m.tenant_id = $1),
			(SELECT COUNT(*) FROM galleries g WHERE g.tenant_id = $1)`,
		tenantID,
	).Scan(&mediaCount, &galleries)
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage query: %w", err)
	}

	return Snapshot{
		StorageUsedBytes: mediaCount * a.averagePerMedia,
		GalleriesUsed:    galleries,
	}, nil
}
