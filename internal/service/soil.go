package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/smartkrishi/smartkrishi-go/internal/model"
)

// SoilService reads soil data for a coordinate.
type SoilService struct {
	api Requester
}

// NewSoilService creates a new SoilService.
func NewSoilService(api Requester) *SoilService {
	return &SoilService{api: api}
}

// GetSoil fetches the soil metrics at c. Metrics the backend does not report
// are left nil.
func (s *SoilService) GetSoil(ctx context.Context, c model.Coordinate) (model.SoilMetrics, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))

	resp, err := s.api.Get(ctx, "/soil?"+q.Encode())
	if err != nil {
		return model.SoilMetrics{}, fmt.Errorf("get soil: %w", err)
	}

	data := resp.Object()
	// Some backends wrap the payload in a "data" envelope.
	if inner, ok := data["data"].(map[string]any); ok {
		data = inner
	}

	return model.SoilMetrics{
		PH:            number(data["pH"]),
		OrganicCarbon: number(data["organicCarbon"]),
		Nitrogen:      number(data["nitrogen"]),
	}, nil
}

// number reads a JSON number or numeric string.
func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
