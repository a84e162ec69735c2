package reconcile

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/manajemen-lele/lele/internal/ledger"
)

// Service fronts the Engine with the Redis cache and collapses concurrent
// loads of the same window into one fan-out.
type Service struct {
	engine *Engine
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService wires an Engine with a Cache.
func NewService(engine *Engine, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, cache: cache, logger: logger}
}

// Engine exposes the underlying engine.
func (s *Service) Engine() *Engine { return s.engine }

// Report returns the reconciled report for filter. Only complete reports are cached.
func (s *Service) Report(ctx context.Context, filter ledger.DateFilter) (*Report, error) {
	key, err := s.cache.BuildKey(ctx, string(s.engine.Mode()), filter.Key())
	if err != nil {
		s.logger.Warn("laporan cache key", slog.Any("error", err))
		return s.engine.Load(ctx, filter)
	}

	var cached Report
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("laporan cache read", slog.Any("error", err))
	} else if hit {
		return &cached, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		report, err := s.engine.Load(ctx, filter)
		if err != nil {
			return nil, err
		}
		if report.Complete() {
			if err := s.cache.Set(ctx, key, report); err != nil {
				s.logger.Warn("laporan cache write", slog.Any("error", err))
			}
		}
		return report, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Report), nil
	}
}

// Warm loads filter and stores it, replacing any cached copy.
func (s *Service) Warm(ctx context.Context, filter ledger.DateFilter) (*Report, error) {
	report, err := s.engine.Load(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !report.Complete() {
		return report, nil
	}
	key, err := s.cache.BuildKey(ctx, string(s.engine.Mode()), filter.Key())
	if err != nil {
		return report, err
	}
	return report, s.cache.Set(ctx, key, report)
}

// Invalidate drops every cached report after a ledger mutation.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
