// Package gateway resolves per-symbol market data lookups across ordered
// provider lists.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/aegis-watch/internal/contracts"
)

// ErrEmpty is recorded when a provider answers without usable data
var ErrEmpty = errors.New("empty result")

// Source is one named provider function for a feature
type Source[T any] struct {
	Name  string
	Fetch func(ctx context.Context, symbol string) (T, error)
}

// FirstSuccess tries sources in order and returns the first non-error,
// usable result together with the source name.
// 모두 실패하면 ErrUpstreamUnavailable로 감싼 에러 반환
func FirstSuccess[T any](ctx context.Context, symbol string, sources []Source[T], usable func(T) bool) (T, string, error) {
	var zero T
	if len(sources) == 0 {
		return zero, "", fmt.Errorf("%w: no providers configured", contracts.ErrUpstreamUnavailable)
	}

	errs := make([]error, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		v, err := src.Fetch(ctx, symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		if usable != nil && !usable(v) {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, ErrEmpty))
			continue
		}
		return v, src.Name, nil
	}

	return zero, "", fmt.Errorf("%w: %s: %w", contracts.ErrUpstreamUnavailable, symbol, errors.Join(errs...))
}
