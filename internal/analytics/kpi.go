// Package analytics holds the server-side aggregations behind the dashboard.
package analytics

import (
	"math"
	"time"

	"github.com/hongminglow/smartdash-be/internal/models"
	"github.com/hongminglow/smartdash-be/internal/models/dto"
)

// Window is the length of each KPI comparison window.
const Window = 7 * 24 * time.Hour

// KPIRange returns the earliest instant CompareKPIs looks at for now.
func KPIRange(now time.Time) time.Time {
	return now.Add(-2 * Window)
}

// CompareKPIs partitions points into [now-7d, now] and [now-14d, now-7d)
// and compares count, sum and mean across the two windows.
func CompareKPIs(points []models.DataPoint, now time.Time) dto.KPIComparison {
	recentStart := now.Add(-Window)
	previousStart := now.Add(-2 * Window)

	var recent, previous []float64
	for _, p := range points {
		switch {
		case !p.Date.Before(recentStart) && !p.Date.After(now):
			recent = append(recent, p.Value)
		case !p.Date.Before(previousStart) && p.Date.Before(recentStart):
			previous = append(previous, p.Value)
		}
	}

	r := summarize(recent)
	pv := summarize(previous)
	return dto.KPIComparison{
		Recent:   r.rounded(),
		Previous: pv.rounded(),
		Changes: dto.KPIChanges{
			Entries:    PercentChange(float64(r.count), float64(pv.count)),
			TotalValue: PercentChange(r.sum, pv.sum),
			Average:    PercentChange(r.mean, pv.mean),
		},
	}
}

type summary struct {
	count int
	sum   float64
	mean  float64
}

func summarize(values []float64) summary {
	s := summary{count: len(values)}
	for _, v := range values {
		s.sum += v
	}
	if s.count > 0 {
		s.mean = s.sum / float64(s.count)
	}
	return s
}

func (s summary) rounded() dto.KPIWindow {
	return dto.KPIWindow{Entries: s.count, TotalValue: Round(s.sum, 2), Average: Round(s.mean, 2)}
}

// PercentChange returns the change from previous to current in percent,
// rounded to one decimal. A zero previous value yields 100 when current is
// positive and 0 otherwise.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return Round((current-previous)/math.Abs(previous)*100, 1)
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
