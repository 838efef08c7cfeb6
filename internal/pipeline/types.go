package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/domain"
)

// Calculator runs the reorder pipeline for a single part.
type Calculator interface {
	CalculatePart(ctx context.Context, partID int64) (*domain.CalculationOutcome, error)
}

// BatchConfig holds configuration for a batch run
type BatchConfig struct {
	WorkerCount int           // Number of concurrent workers
	PartTimeout time.Duration // Max time for one part, 0 disables
}

// DefaultBatchConfig returns sequential processing with no per-part timeout.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		WorkerCount: 1,
	}
}

// BatchConfigFrom derives the batch settings from the ROP configuration.
func BatchConfigFrom(cfg config.ROPConfig) BatchConfig {
	out := DefaultBatchConfig()
	if cfg.WorkerCount > 0 {
		out.WorkerCount = cfg.WorkerCount
	}
	return out
}

// PartResult is the outcome of one part within a batch.
type PartResult struct {
	PartID   int64
	Outcome  *domain.CalculationOutcome
	Err      error
	Duration time.Duration
}
