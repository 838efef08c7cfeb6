package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPConfig points the provider at an external forecasting service.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPProvider fetches forecasts from GET {BaseURL}/parts/{id}/forecast.
//
// The expected body is either a bare array or {"points": [...]}, each point
// being {"date": "2006-01-02", "projected_stock": <number|string>}.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

type wirePoint struct {
	Date           string          `json:"date"`
	ProjectedStock decimal.Decimal `json:"projected_stock"`
}

type wireEnvelope struct {
	Points []wirePoint `json:"points"`
}

// NewHTTPProvider validates cfg and builds a provider.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("forecast base url must be provided")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid forecast base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPProvider{
		baseURL: base,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (p *HTTPProvider) Forecast(ctx context.Context, partID int64) ([]domain.ForecastPoint, error) {
	endpoint := fmt.Sprintf("%s/parts/%d/forecast", p.baseURL, partID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read forecast body: %w", err)
	}

	return decodePoints(body)
}

func decodePoints(body []byte) ([]domain.ForecastPoint, error) {
	var raw []wirePoint
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var env wireEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decode forecast: %w", err)
		}
		raw = env.Points
	} else if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}

	points := make([]domain.ForecastPoint, 0, len(raw))
	for _, wp := range raw {
		date, err := parseDate(wp.Date)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.ForecastPoint{Date: date, ProjectedStock: wp.ProjectedStock})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid forecast date %q", s)
	}
	return t, nil
}

var _ Provider = (*HTTPProvider)(nil)
