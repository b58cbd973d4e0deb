package handler

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/dashboarding"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/forecasting"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
)

const (
	chartWidth  = 900
	chartHeight = 260
	chartPad    = 40
)

type barView struct {
	X, Y, Width, Height float64
	Label               string
	Value               string
}

type lineChartView struct {
	Points     string
	AxisLabels []axisLabelView
	MinLabel   string
	MaxLabel   string
	Width      int
	Height     int
}

type axisLabelView struct {
	X     float64
	Label string
}

type forecastChartView struct {
	HistoryPoints  string
	ForecastPoints string
	SplitX         float64
	MinLabel       string
	MaxLabel       string
	StartLabel     string
	SplitLabel     string
	EndLabel       string
	Width          int
	Height         int
}

type pageView struct {
	GeneratedAt    string
	Countries      []string
	SelectedSet    map[string]bool
	StartDate      string
	EndDate        string
	Horizon        int
	MinHorizon     int
	MaxHorizon     int
	Summary        *domain.DashboardSummary
	TotalRevenue   string
	Bars           []barView
	BarChartHeight int
	WeeklyChart    *lineChartView
	ForecastChart  *forecastChartView
	ForecastMAPE   string
	ModelMissing   bool
	QueryError     string
}

// DashboardPage renders the interactive dashboard: KPI cards, revenue charts
// and the forecast view, filtered through the same query parameters as the
// JSON API.
func DashboardPage(forecastService forecasting.Forecaster, dashboardService dashboarding.Dashboarder, cfg *config.Config) http.Handler {
	tmpl := template.Must(template.New("dashboard").Parse(dashboardTemplate))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		view := &pageView{
			GeneratedAt: time.Now().UTC().Format(time.RFC1123),
			StartDate:   r.URL.Query().Get("start_date"),
			EndDate:     r.URL.Query().Get("end_date"),
			MinHorizon:  cfg.Dashboard.MinHorizon,
			MaxHorizon:  cfg.Dashboard.MaxHorizon,
			SelectedSet: map[string]bool{},
		}

		horizon := cfg.Dashboard.DefaultHorizon
		if raw := r.URL.Query().Get("horizon"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				horizon = parsed
			}
		}
		view.Horizon = forecastService.ClampHorizon(horizon)

		selected := r.URL.Query()["country"]
		for _, c := range selected {
			view.SelectedSet[c] = true
		}

		countries, err := dashboardService.Countries(r.Context())
		if err != nil {
			logger.WithError(err).Error("page: failed to list countries")
			view.QueryError = "sales data is unavailable"
		}
		view.Countries = countries

		filters := &domain.DashboardFilters{Countries: selected}
		if filters.StartDate, err = parseOptionalDate(view.StartDate); err != nil {
			view.StartDate = ""
		}
		if filters.EndDate, err = parseOptionalDate(view.EndDate); err != nil {
			view.EndDate = ""
		}

		if view.QueryError == "" {
			summary, err := dashboardService.Summary(r.Context(), filters)
			if err != nil {
				logger.WithError(err).Error("page: failed to compute summary")
				view.QueryError = "sales data is unavailable"
			} else {
				view.Summary = summary
				view.TotalRevenue = formatMoney(summary.TotalRevenue)
				view.Bars, view.BarChartHeight = buildCountryBars(summary.RevenueByCountry)
				view.WeeklyChart = buildWeeklyChart(summary.WeeklyRevenue)
			}
		}

		forecast, err := forecastService.Forecast(r.Context(), view.Horizon)
		switch {
		case err == forecasting.ErrModelUnavailable:
			view.ModelMissing = true
		case err != nil:
			logger.WithError(err).Error("page: failed to generate forecast")
			view.ModelMissing = true
		default:
			view.ForecastChart = buildForecastChart(forecast)
			view.ForecastMAPE = fmt.Sprintf("%.1f%%", forecast.InSampleMAPE*100)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, view); err != nil {
			logger.WithError(err).Error("page: failed to render dashboard")
		}
	})
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	formatted := fmt.Sprintf("%.2f", v)
	whole, frac := formatted[:len(formatted)-3], formatted[len(formatted)-3:]

	var b strings.Builder
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String() + frac
}

func buildCountryBars(rows []domain.CountryRevenue) ([]barView, int) {
	if len(rows) == 0 {
		return nil, 0
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}

	maxRevenue := rows[0].Revenue
	if maxRevenue <= 0 {
		maxRevenue = 1
	}

	const rowHeight, barMaxWidth = 28.0, 600.0
	bars := make([]barView, 0, len(rows))
	for i, row := range rows {
		width := barMaxWidth * row.Revenue / maxRevenue
		if width < 2 {
			width = 2
		}
		bars = append(bars, barView{
			X:      200,
			Y:      float64(i)*rowHeight + 4,
			Width:  width,
			Height: rowHeight - 8,
			Label:  row.Country,
			Value:  formatMoney(row.Revenue),
		})
	}
	return bars, len(rows)*int(rowHeight) + 10
}

func buildWeeklyChart(rows []domain.WeeklyRevenue) *lineChartView {
	if len(rows) < 2 {
		return nil
	}

	minV, maxV := rows[0].Revenue, rows[0].Revenue
	for _, r := range rows {
		if r.Revenue < minV {
			minV = r.Revenue
		}
		if r.Revenue > maxV {
			maxV = r.Revenue
		}
	}
	if maxV == minV {
		maxV = minV + 1
	}

	var points strings.Builder
	for i, r := range rows {
		x := chartPad + float64(i)*(chartWidth-2*chartPad)/float64(len(rows)-1)
		y := chartHeight - chartPad - (r.Revenue-minV)*(chartHeight-2*chartPad)/(maxV-minV)
		fmt.Fprintf(&points, "%.1f,%.1f ", x, y)
	}

	labels := []axisLabelView{
		{X: chartPad, Label: rows[0].WeekStart.Format(time.DateOnly)},
		{X: chartWidth - chartPad - 80, Label: rows[len(rows)-1].WeekStart.Format(time.DateOnly)},
	}

	return &lineChartView{
		Points:     strings.TrimSpace(points.String()),
		AxisLabels: labels,
		MinLabel:   formatMoney(minV),
		MaxLabel:   formatMoney(maxV),
		Width:      chartWidth,
		Height:     chartHeight,
	}
}

func buildForecastChart(result *domain.ForecastResult) *forecastChartView {
	history := result.History
	if len(history) == 0 || len(result.Points) == 0 {
		return nil
	}

	total := len(history) + len(result.Points)
	minV := history[0].Revenue
	maxV := history[0].Revenue
	values := make([]float64, 0, total)
	for _, p := range history {
		values = append(values, p.Revenue)
	}
	for _, p := range result.Points {
		values = append(values, p.PredictedRevenue)
	}
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if maxV == minV {
		maxV = minV + 1
	}

	xAt := func(i int) float64 {
		return chartPad + float64(i)*(chartWidth-2*chartPad)/float64(total-1)
	}
	yAt := func(v float64) float64 {
		return chartHeight - chartPad - (v-minV)*(chartHeight-2*chartPad)/(maxV-minV)
	}

	var historyPoints, forecastPoints strings.Builder
	for i, p := range history {
		fmt.Fprintf(&historyPoints, "%.1f,%.1f ", xAt(i), yAt(p.Revenue))
	}
	// The forecast polyline starts at the last observed day so the two lines
	// join visually.
	fmt.Fprintf(&forecastPoints, "%.1f,%.1f ", xAt(len(history)-1), yAt(history[len(history)-1].Revenue))
	for i, p := range result.Points {
		fmt.Fprintf(&forecastPoints, "%.1f,%.1f ", xAt(len(history)+i), yAt(p.PredictedRevenue))
	}

	return &forecastChartView{
		HistoryPoints:  strings.TrimSpace(historyPoints.String()),
		ForecastPoints: strings.TrimSpace(forecastPoints.String()),
		SplitX:         xAt(len(history) - 1),
		MinLabel:       formatMoney(minV),
		MaxLabel:       formatMoney(maxV),
		StartLabel:     history[0].Date.Format(time.DateOnly),
		SplitLabel:     result.LastObserved.Format(time.DateOnly),
		EndLabel:       result.Points[len(result.Points)-1].Date.Format(time.DateOnly),
		Width:          chartWidth,
		Height:         chartHeight,
	}
}

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Retail Analytics</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f4f5f7; color: #1f2937; }
header { background: #111827; color: #f9fafb; padding: 16px 32px; }
header h1 { margin: 0; font-size: 20px; }
main { max-width: 1000px; margin: 24px auto; padding: 0 16px; }
.cards { display: flex; gap: 16px; flex-wrap: wrap; }
.card { flex: 1; min-width: 220px; background: #fff; border-radius: 8px; padding: 16px 20px; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
.card .label { font-size: 12px; text-transform: uppercase; letter-spacing: .05em; color: #6b7280; }
.card .value { font-size: 26px; font-weight: 600; margin-top: 4px; }
section { background: #fff; border-radius: 8px; padding: 16px 20px; margin-top: 20px; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
section h2 { margin: 0 0 12px; font-size: 16px; }
form.filters { display: flex; gap: 12px; flex-wrap: wrap; align-items: flex-end; }
form.filters label { display: block; font-size: 12px; color: #6b7280; margin-bottom: 4px; }
form.filters select, form.filters input { padding: 6px 8px; border: 1px solid #d1d5db; border-radius: 6px; }
form.filters button { padding: 8px 16px; background: #2563eb; color: #fff; border: 0; border-radius: 6px; cursor: pointer; }
.bar { fill: #2563eb; }
.bar-label { font-size: 12px; fill: #374151; }
.bar-value { font-size: 12px; fill: #6b7280; }
.axis-label { font-size: 11px; fill: #6b7280; }
.history-line { fill: none; stroke: #2563eb; stroke-width: 2; }
.forecast-line { fill: none; stroke: #f59e0b; stroke-width: 2; stroke-dasharray: 6 4; }
.split-line { stroke: #9ca3af; stroke-width: 1; stroke-dasharray: 2 3; }
.warning { background: #fef3c7; border: 1px solid #f59e0b; border-radius: 8px; padding: 12px 16px; margin-top: 20px; }
.error { background: #fee2e2; border: 1px solid #ef4444; border-radius: 8px; padding: 12px 16px; margin-top: 20px; }
.meta { color: #6b7280; font-size: 12px; margin-top: 24px; }
</style>
</head>
<body>
<header><h1>Retail Analytics</h1></header>
<main>

{{if .QueryError}}<div class="error">{{.QueryError}}</div>{{end}}

<section>
<h2>Filters</h2>
<form class="filters" method="get" action="/">
  <div>
    <label for="country">Countries</label>
    <select id="country" name="country" multiple size="4">
      {{range .Countries}}<option value="{{.}}"{{if index $.SelectedSet .}} selected{{end}}>{{.}}</option>{{end}}
    </select>
  </div>
  <div>
    <label for="start_date">Start date</label>
    <input id="start_date" type="date" name="start_date" value="{{.StartDate}}">
  </div>
  <div>
    <label for="end_date">End date</label>
    <input id="end_date" type="date" name="end_date" value="{{.EndDate}}">
  </div>
  <div>
    <label for="horizon">Forecast horizon (days)</label>
    <input id="horizon" type="range" name="horizon" min="{{.MinHorizon}}" max="{{.MaxHorizon}}" value="{{.Horizon}}"
      oninput="this.nextElementSibling.textContent = this.value">
    <output for="horizon">{{.Horizon}}</output>
  </div>
  <button type="submit">Apply</button>
</form>
</section>

{{if .Summary}}
<section>
<h2>Key metrics</h2>
<div class="cards">
  <div class="card"><div class="label">Total revenue</div><div class="value">{{.TotalRevenue}}</div></div>
  <div class="card"><div class="label">Total orders</div><div class="value">{{.Summary.TotalOrders}}</div></div>
  <div class="card"><div class="label">Unique customers</div><div class="value">{{.Summary.UniqueCustomers}}</div></div>
</div>
</section>

{{if .Bars}}
<section>
<h2>Revenue by country</h2>
<svg width="900" height="{{.BarChartHeight}}" role="img">
  {{range .Bars}}
  <text class="bar-label" x="4" y="{{.Y}}" dy="14">{{.Label}}</text>
  <rect class="bar" x="{{.X}}" y="{{.Y}}" width="{{.Width}}" height="{{.Height}}"></rect>
  <text class="bar-value" x="{{.X}}" y="{{.Y}}" dx="{{.Width}}" dy="14">&#160;{{.Value}}</text>
  {{end}}
</svg>
</section>
{{end}}

{{if .WeeklyChart}}
<section>
<h2>Weekly revenue</h2>
<svg width="{{.WeeklyChart.Width}}" height="{{.WeeklyChart.Height}}" role="img">
  <polyline class="history-line" points="{{.WeeklyChart.Points}}"></polyline>
  <text class="axis-label" x="4" y="16">{{.WeeklyChart.MaxLabel}}</text>
  <text class="axis-label" x="4" y="{{.WeeklyChart.Height}}" dy="-6">{{.WeeklyChart.MinLabel}}</text>
  {{range .WeeklyChart.AxisLabels}}
  <text class="axis-label" x="{{.X}}" y="{{$.WeeklyChart.Height}}" dy="-6">{{.Label}}</text>
  {{end}}
</svg>
</section>
{{end}}

{{if .Summary.TopProducts}}
<section>
<h2>Top products</h2>
<table>
  <thead><tr><th align="left">Product</th><th align="right">Revenue</th></tr></thead>
  <tbody>
  {{range .Summary.TopProducts}}<tr><td>{{.Description}}</td><td align="right">{{printf "%.2f" .Revenue}}</td></tr>{{end}}
  </tbody>
</table>
</section>
{{end}}
{{end}}

{{if .ModelMissing}}
<div class="warning">No trained forecast model is available. Run the train stage, then reload this page.</div>
{{else if .ForecastChart}}
<section>
<h2>Revenue forecast ({{.Horizon}} days, in-sample MAPE {{.ForecastMAPE}})</h2>
<svg width="{{.ForecastChart.Width}}" height="{{.ForecastChart.Height}}" role="img">
  <line class="split-line" x1="{{.ForecastChart.SplitX}}" y1="20" x2="{{.ForecastChart.SplitX}}" y2="{{.ForecastChart.Height}}"></line>
  <polyline class="history-line" points="{{.ForecastChart.HistoryPoints}}"></polyline>
  <polyline class="forecast-line" points="{{.ForecastChart.ForecastPoints}}"></polyline>
  <text class="axis-label" x="4" y="16">{{.ForecastChart.MaxLabel}}</text>
  <text class="axis-label" x="4" y="{{.ForecastChart.Height}}" dy="-6">{{.ForecastChart.MinLabel}}</text>
  <text class="axis-label" x="40" y="{{.ForecastChart.Height}}" dy="-6">{{.ForecastChart.StartLabel}}</text>
  <text class="axis-label" x="{{.ForecastChart.SplitX}}" y="20">{{.ForecastChart.SplitLabel}}</text>
  <text class="axis-label" x="{{.ForecastChart.Width}}" y="{{.ForecastChart.Height}}" dx="-120" dy="-6">{{.ForecastChart.EndLabel}}</text>
</svg>
</section>
{{end}}

<p class="meta">Generated at {{.GeneratedAt}}</p>
</main>
</body>
</html>`
