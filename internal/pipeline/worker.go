package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// WorkerPool fans part calculations out to a fixed number of goroutines.
// A failure or panic in one part never stops the others.
type WorkerPool struct {
	calc   Calculator
	config BatchConfig
}

func NewWorkerPool(calc Calculator, config BatchConfig) *WorkerPool {
	return &WorkerPool{calc: calc, config: config}
}

// Process calculates every part and streams results as they finish. The
// channel is closed once all started parts are done. Parts not yet started
// when ctx is cancelled are skipped.
func (w *WorkerPool) Process(ctx context.Context, partIDs []int64) <-chan PartResult {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(partIDs) && len(partIDs) > 0 {
		workerCount = len(partIDs)
	}

	jobChan := make(chan int64)
	resultChan := make(chan PartResult, workerCount)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for partID := range jobChan {
				result := w.processPart(ctx, partID)
				if result.Err != nil {
					log.Error().Err(result.Err).Int("worker", workerID).Int64("part_id", partID).Msg("rop batch: part failed")
				}
				resultChan <- result
			}
		}(i)
	}

	// Enqueue jobs
	go func() {
		defer close(jobChan)
		for _, partID := range partIDs {
			select {
			case <-ctx.Done():
				return
			case jobChan <- partID:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	return resultChan
}

func (w *WorkerPool) processPart(ctx context.Context, partID int64) (result PartResult) {
	startTime := time.Now()
	result.PartID = partID

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stack", string(debug.Stack())).Int64("part_id", partID).Msg("rop batch: recovered panic")
			result.Outcome = nil
			result.Err = fmt.Errorf("panic: %v", r)
		}
		result.Duration = time.Since(startTime)
	}()

	if w.config.PartTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.PartTimeout)
		defer cancel()
	}

	result.Outcome, result.Err = w.calc.CalculatePart(ctx, partID)
	return result
}
