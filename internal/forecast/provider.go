package forecast

import (
	"context"
	"errors"

	"github.com/andresuchdata/rop-engine/internal/domain"
)

// ErrUnavailable is returned by providers that have no forecast to offer.
// Callers fall back to a linear estimate without logging.
var ErrUnavailable = errors.New("forecast unavailable")

// Provider returns a chronological series of projected stock points for a part.
type Provider interface {
	Forecast(ctx context.Context, partID int64) ([]domain.ForecastPoint, error)
}

// None is the provider used when no forecasting service is configured.
type None struct{}

func (None) Forecast(ctx context.Context, partID int64) ([]domain.ForecastPoint, error) {
	return nil, ErrUnavailable
}

var _ Provider = None{}
