package domain

import "time"

// DashboardFilters restricts the historical data shown on the dashboard.
// Nil dates mean unbounded; both endpoints are inclusive. An empty country
// list means all countries.
type DashboardFilters struct {
	Countries []string   `json:"countries"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// CountryRevenue is one bar of the revenue-by-country chart.
type CountryRevenue struct {
	Country string  `json:"country"`
	Revenue float64 `json:"revenue"`
}

// WeeklyRevenue is one point of the weekly revenue time series. WeekStart is
// the Monday opening the bucket.
type WeeklyRevenue struct {
	WeekStart time.Time `json:"week_start"`
	Revenue   float64   `json:"revenue"`
}

// ProductRevenue is one row of the top-products table.
type ProductRevenue struct {
	Description string  `json:"description"`
	Revenue     float64 `json:"revenue"`
}

// DashboardSummary bundles the KPIs and chart data for one filter selection.
type DashboardSummary struct {
	Filters          *DashboardFilters `json:"filters"`
	TotalRevenue     float64           `json:"total_revenue"`
	TotalOrders      int               `json:"total_orders"`
	UniqueCustomers  int               `json:"unique_customers"`
	RevenueByCountry []CountryRevenue  `json:"revenue_by_country"`
	WeeklyRevenue    []WeeklyRevenue   `json:"weekly_revenue"`
	TopProducts      []ProductRevenue  `json:"top_products"`
}
