package domain

import "time"

// RevenueObservation is one raw (timestamp, total price) pair from the
// cleaned warehouse table, before daily resampling.
type RevenueObservation struct {
	Timestamp  time.Time `json:"timestamp"`
	TotalPrice float64   `json:"total_price"`
}

// DailyRevenuePoint is one calendar day of summed revenue.
type DailyRevenuePoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
}

// DailyRevenueSeries is a gap-free, date-ordered daily series. Days without
// transactions carry an explicit zero.
type DailyRevenueSeries struct {
	Start  time.Time `json:"start"`
	Values []float64 `json:"values"`
}

// Len returns the number of days in the series.
func (s DailyRevenueSeries) Len() int {
	return len(s.Values)
}

// End returns the date of the last observation.
func (s DailyRevenueSeries) End() time.Time {
	if len(s.Values) == 0 {
		return s.Start
	}
	return s.Start.AddDate(0, 0, len(s.Values)-1)
}

// Points expands the series into dated points.
func (s DailyRevenueSeries) Points() []DailyRevenuePoint {
	points := make([]DailyRevenuePoint, 0, len(s.Values))
	for i, v := range s.Values {
		points = append(points, DailyRevenuePoint{
			Date:    s.Start.AddDate(0, 0, i),
			Revenue: v,
		})
	}
	return points
}

// Tail returns the last n days of the series as dated points.
func (s DailyRevenueSeries) Tail(n int) []DailyRevenuePoint {
	points := s.Points()
	if n >= len(points) {
		return points
	}
	return points[len(points)-n:]
}
