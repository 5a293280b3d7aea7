package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/logger"
	"github.com/complytics/memegen/internal/storage"
	_ "golang.org/x/image/webp"
)

// RowResult is the per-row outcome of a batch run: either an artifact
// or the error that failed the row. Exactly one of the two is set.
type RowResult struct {
	RowIndex int                  `json:"row_index"`
	Artifact *domain.MemeArtifact `json:"artifact,omitempty"`
	Err      error                `json:"-"`
}

// BatchProcessor drives the image model once per selected idea row and
// persists the resulting artifacts. One row's failure never aborts the
// batch; every selected row gets an entry in the result mapping unless
// the whole batch was cancelled before the row was issued.
type BatchProcessor struct {
	gen        Generator
	builder    *PromptBuilder
	store      storage.ArtifactStore
	logger     *logger.Logger
	workers    int
	retryCount int
}

// BatchConfig holds configuration for the batch processor.
type BatchConfig struct {
	Workers    int // bound on concurrent in-flight image calls; <=1 is sequential
	RetryCount int // extra attempts per row for transport-class failures
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(gen Generator, builder *PromptBuilder, store storage.ArtifactStore, log *logger.Logger, cfg *BatchConfig) *BatchProcessor {
	workers := 1
	retryCount := 0
	if cfg != nil {
		if cfg.Workers > 1 {
			workers = cfg.Workers
		}
		if cfg.RetryCount > 0 {
			retryCount = cfg.RetryCount
		}
	}
	return &BatchProcessor{
		gen:        gen,
		builder:    builder,
		store:      store,
		logger:     log,
		workers:    workers,
		retryCount: retryCount,
	}
}

// log returns the injected logger enriched with the tracing fields
// carried by ctx.
func (p *BatchProcessor) log(ctx context.Context) *logger.Logger {
	return p.logger.WithFields(logger.TracingFields(ctx))
}

// ProcessBatch generates one meme per selected row index.
// Parameters:
//   - ctx: cancelling it stops issuing new rows; in-flight rows finish
//     or fail on their own terms.
//   - table: current idea table the indices refer to.
//   - indices: selected row indices; duplicates are collapsed; an
//     empty selection is a no-op.
//
// Returns:
//   - map[int]RowResult: one entry per issued row index; absent
//     indices were never selected or never issued due to cancellation.
func (p *BatchProcessor) ProcessBatch(ctx context.Context, table domain.IdeaTable, indices []int) map[int]RowResult {
	results := make(map[int]RowResult)

	selected := dedupeIndices(indices)
	if len(selected) == 0 {
		return results
	}

	p.log(ctx).WithFields(logger.Fields{
		"selected": len(selected),
		"workers":  p.workers,
	}).Info("Starting meme batch")

	start := time.Now()

	if p.workers <= 1 || len(selected) == 1 {
		for _, idx := range selected {
			if ctx.Err() != nil {
				break
			}
			results[idx] = p.processRow(ctx, table, idx)
		}
	} else {
		jobs := make(chan int)
		resultsChan := make(chan RowResult, len(selected))

		var wg sync.WaitGroup
		for i := 0; i < p.workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for idx := range jobs {
					resultsChan <- p.processRow(ctx, table, idx)
				}
			}()
		}

	issue:
		for _, idx := range selected {
			select {
			case jobs <- idx:
			case <-ctx.Done():
				break issue
			}
		}
		close(jobs)
		wg.Wait()
		close(resultsChan)

		for r := range resultsChan {
			results[r.RowIndex] = r
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(results),
	}).Info(ctx, "Meme batch completed: failed=%d", failed)

	return results
}

func (p *BatchProcessor) processRow(ctx context.Context, table domain.IdeaTable, idx int) RowResult {
	result := RowResult{RowIndex: idx}

	if idx < 0 || idx >= len(table) {
		result.Err = &domain.ValidationError{Field: "row_index", Reason: fmt.Sprintf("index %d outside table of %d rows", idx, len(table))}
		return result
	}

	prompt, err := p.builder.BuildMemePrompt(&table[idx])
	if err != nil {
		result.Err = err
		return result
	}

	data, mimeType, err := p.generateWithRetry(ctx, idx, prompt)
	if err != nil {
		result.Err = err
		p.log(ctx).WithField(logger.FieldRow, idx).WithError(err).Warn("Meme generation failed")
		return result
	}

	width, height, err := getImageDimensions(data)
	if err != nil {
		p.log(ctx).WithField(logger.FieldRow, idx).WithError(err).Warn("Failed to decode image dimensions")
		width, height = 0, 0
	}

	name := fmt.Sprintf("meme_%d.png", idx)
	savedPath, err := p.store.Save(name, data)
	if err != nil {
		result.Err = fmt.Errorf("failed to save artifact: %w", err)
		return result
	}

	result.Artifact = &domain.MemeArtifact{
		RowIndex:  idx,
		Image:     data,
		SavedPath: savedPath,
		MIMEType:  mimeType,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now(),
	}

	p.log(ctx).WithFields(logger.Fields{
		logger.FieldRow:  idx,
		logger.FieldSize: len(data),
		"dimensions":     fmt.Sprintf("%dx%d", width, height),
	}).Info("Meme generated")

	return result
}

// generateWithRetry retries transport-class failures up to the
// configured count. Refusals (EmptyResultError) are final: retrying a
// prompt the model declined wastes quota.
func (p *BatchProcessor) generateWithRetry(ctx context.Context, idx int, prompt string) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.retryCount; attempt++ {
		if ctx.Err() != nil && lastErr != nil {
			break
		}
		data, mimeType, err := p.gen.GenerateImage(ctx, prompt)
		if err == nil {
			return data, mimeType, nil
		}
		lastErr = err

		var remoteErr *domain.RemoteError
		if !errors.As(err, &remoteErr) {
			break
		}
		if attempt < p.retryCount {
			p.log(ctx).WithField(logger.FieldRow, idx).WithError(err).
				Warnf("Retrying meme generation (attempt %d of %d)", attempt+2, p.retryCount+1)
		}
	}
	return nil, "", lastErr
}

func dedupeIndices(indices []int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}

func getImageDimensions(data []byte) (int, int, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}
