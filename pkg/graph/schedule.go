package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parley-ai/parley/backend/internal/util"
	"github.com/parley-ai/parley/backend/pkg/common"
	"github.com/parley-ai/parley/backend/pkg/extract"
	"github.com/parley-ai/parley/backend/pkg/logger"
)

// modelBatchTokenBudget bounds the combined prompt text of one model batch
// so a single call stays well inside the context window.
const modelBatchTokenBudget = 4096

// runExtraction executes the configured strategy for every category over
// the conversation's segments and returns the merged result plus the
// categories that degraded to their rule-based variant.
//
// Model batches run on a per-category worker pool bounded by MaxWorkers and
// are retried with exponential backoff. The first batch that exhausts its
// retries degrades the whole category: all model results for it are
// discarded, in-flight successes included, and the rule-based variant is
// re-run over every batch so a category's output never mixes variants.
func runExtraction(
	ctx context.Context,
	cfg Config,
	registry *extract.Registry,
	segments []common.Segment,
) (*extract.Result, []extract.Category, error) {
	merged := &extract.Result{}
	var degradedCategories []extract.Category

	for _, category := range extract.Categories {
		cc := cfg.Categories[category]
		if !cc.Enabled {
			continue
		}

		res, degraded, err := runCategory(ctx, cfg, registry, category, cc, segments)
		if err != nil {
			return nil, nil, err
		}
		if degraded {
			degradedCategories = append(degradedCategories, category)
		}
		merged.Merge(res)
	}

	return merged, degradedCategories, nil
}

func runCategory(
	ctx context.Context,
	cfg Config,
	registry *extract.Registry,
	category extract.Category,
	cc CategoryConfig,
	segments []common.Segment,
) (*extract.Result, bool, error) {
	switch cc.Method {
	case MethodRuleBased:
		res, err := runRuleBased(ctx, registry, category, cc, segments)
		return res, false, err
	case MethodModelBased, MethodHybrid:
	default:
		return nil, false, &common.ConfigurationError{
			Field:  "categories." + string(category) + ".method",
			Reason: fmt.Sprintf("unknown method %q", cc.Method),
		}
	}

	modelRes, degraded, err := runModelBased(ctx, cfg, registry, category, cc, segments)
	if err != nil {
		return nil, false, err
	}

	if degraded {
		// Never mix variants: the category's output is rule-based only.
		res, err := runRuleBased(ctx, registry, category, cc, segments)
		return res, true, err
	}

	if cc.Method == MethodHybrid {
		ruleRes, err := runRuleBased(ctx, registry, category, cc, segments)
		if err != nil {
			return nil, false, err
		}
		modelRes.Merge(ruleRes)
	}

	return modelRes, false, nil
}

func runRuleBased(
	ctx context.Context,
	registry *extract.Registry,
	category extract.Category,
	cc CategoryConfig,
	segments []common.Segment,
) (*extract.Result, error) {
	extractor := registry.RuleBased(category)
	if extractor == nil {
		return nil, &common.ConfigurationError{
			Field:  "categories." + string(category),
			Reason: "no rule-based extractor registered",
		}
	}

	batches, err := makeBatches(category, segments, cc.BatchSize, 0)
	if err != nil {
		return nil, err
	}

	merged := &extract.Result{}
	for _, batch := range batches {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res, err := extractor.Extract(ctx, batch.Segments)
		if err != nil {
			return nil, &common.ExtractionError{Category: string(category), Batch: batch.Number, Err: err}
		}
		merged.Merge(res)
	}
	return merged, nil
}

// extractModelBatch runs one model call under the per-call timeout. An
// attempt that only hit its own deadline comes back as a plain error, so the
// retry loop treats a hung backend like any other failed attempt instead of
// aborting on a context error.
func extractModelBatch(
	ctx context.Context,
	extractor extract.Extractor,
	segments []common.Segment,
	timeout time.Duration,
) (*extract.Result, error) {
	if timeout <= 0 {
		return extractor.Extract(ctx, segments)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := extractor.Extract(callCtx, segments)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("model call exceeded the %s timeout", timeout)
	}
	return res, err
}

func runModelBased(
	ctx context.Context,
	cfg Config,
	registry *extract.Registry,
	category extract.Category,
	cc CategoryConfig,
	segments []common.Segment,
) (*extract.Result, bool, error) {
	extractor := registry.ModelBased(category)
	if extractor == nil {
		return nil, false, &common.ConfigurationError{
			Field:  "categories." + string(category),
			Reason: "a model-based method is configured but no model extractor is registered",
		}
	}

	batches, err := makeBatches(category, segments, cc.BatchSize, modelBatchTokenBudget)
	if err != nil {
		return nil, false, err
	}

	var lock sync.Mutex
	degraded := false
	results := make([]*extract.Result, len(batches))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxWorkers)
	for i, batch := range batches {
		g.Go(func() error {
			lock.Lock()
			skip := degraded
			lock.Unlock()
			if skip || gCtx.Err() != nil {
				return nil
			}

			res, err := util.RetryBackoffWithContext(gCtx, cfg.MaxRetries, cfg.RetryBaseDelay, func(ctx context.Context) (*extract.Result, error) {
				return extractModelBatch(ctx, extractor, batch.Segments, cfg.ModelCallTimeout)
			})
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				extractionErr := &common.ExtractionError{Category: string(category), Batch: batch.Number, Err: err}
				logger.Warn("[Graph] Degrading category to rule-based extraction", "error", extractionErr)
				lock.Lock()
				degraded = true
				lock.Unlock()
				return nil
			}

			// A success landing after degradation is discarded; the
			// category reruns rule-based over every batch.
			lock.Lock()
			if !degraded {
				results[i] = res
			}
			lock.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	if degraded {
		return nil, true, nil
	}

	merged := &extract.Result{}
	for _, res := range results {
		merged.Merge(res)
	}
	return merged, false, nil
}
