package analytics

import (
	"strconv"
	"strings"
	"time"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
)

// SeriesPoint is the per-point shape the prediction service expects.
type SeriesPoint struct {
	Value float64    `json:"value"`
	Label string     `json:"label"`
	Date  *time.Time `json:"date,omitempty"`
}

// Series maps points to value/label pairs, preserving order.
func Series(points []models.DataPoint) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, SeriesPoint{Value: p.Value, Label: p.Label})
	}
	return out
}

// GroupByCategory maps each category to its points in input order.
func GroupByCategory(points []models.DataPoint) map[string][]SeriesPoint {
	out := make(map[string][]SeriesPoint)
	for _, p := range points {
		date := p.Date
		out[p.Category] = append(out[p.Category], SeriesPoint{Value: p.Value, Label: p.Label, Date: &date})
	}
	return out
}

// Originals echoes points back next to prediction output.
func Originals(points []models.DataPoint, withCategory bool) []dto.OriginalPoint {
	out := make([]dto.OriginalPoint, 0, len(points))
	for _, p := range points {
		o := dto.OriginalPoint{Label: p.Label, Value: p.Value}
		if withCategory {
			o.Category = p.Category
		}
		out = append(out, o)
	}
	return out
}

// ParseMultiplier reads a growth multiplier, falling back to 1.0 when the
// input is missing, unparsable or zero.
func ParseMultiplier(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v == 0 || v != v {
		return 1.0
	}
	return v
}
