package dashboarding

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/repository"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	"github.com/ecominsights/retail-analytics-api/pkg/utils"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

const topProductsLimit = 10

// Dashboarder answers the dashboard's historical queries.
type Dashboarder interface {
	Summary(ctx context.Context, filters *domain.DashboardFilters) (*domain.DashboardSummary, error)
	Countries(ctx context.Context) ([]string, error)
}

// Service aggregates cleaned transactions into dashboard KPIs and charts.
// Results are cached per filter selection so repeated interactions within the
// TTL never hit the warehouse again.
type Service struct {
	cfg   *config.Config
	repo  repository.TransactionRepository
	cache *gocache.Cache
}

func NewService(cfg *config.Config, repo repository.TransactionRepository) *Service {
	ttl := time.Duration(cfg.Dashboard.CacheTTLSeconds) * time.Second
	return &Service{
		cfg:   cfg,
		repo:  repo,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Summary computes the KPIs and chart payloads for one filter selection.
// Dates filter by calendar day with both endpoints inclusive; an empty
// country list means all countries.
func (s *Service) Summary(ctx context.Context, filters *domain.DashboardFilters) (*domain.DashboardSummary, error) {
	if filters == nil {
		filters = &domain.DashboardFilters{}
	}

	key := summaryCacheKey(filters)
	if cached, found := s.cache.Get(key); found {
		return cached.(*domain.DashboardSummary), nil
	}

	transactions, err := s.repo.GetCleanedTransactions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load transactions for dashboard")
	}

	filtered := applyFilters(transactions, filters)
	summary := buildSummary(filters, filtered)

	log.ForContext(ctx).WithFields(log.Fields{
		"rows_total":    len(transactions),
		"rows_filtered": len(filtered),
		"cache_key":     key,
	}).Info("dashboard: summary computed")

	s.cache.SetDefault(key, summary)
	return summary, nil
}

// Countries lists every country present in the cleaned data, sorted, for the
// filter control.
func (s *Service) Countries(ctx context.Context) ([]string, error) {
	const key = "countries"
	if cached, found := s.cache.Get(key); found {
		return cached.([]string), nil
	}

	transactions, err := s.repo.GetCleanedTransactions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load countries")
	}

	seen := make(map[string]struct{})
	for _, tx := range transactions {
		seen[tx.Country] = struct{}{}
	}
	countries := make([]string, 0, len(seen))
	for c := range seen {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	s.cache.SetDefault(key, countries)
	return countries, nil
}

// Flush drops every cached query result. Called after a fresh ingest so the
// dashboard reflects the new data immediately.
func (s *Service) Flush() {
	s.cache.Flush()
}

func applyFilters(transactions []*domain.Transaction, filters *domain.DashboardFilters) []*domain.Transaction {
	countrySet := make(map[string]struct{}, len(filters.Countries))
	for _, c := range filters.Countries {
		countrySet[c] = struct{}{}
	}

	filtered := make([]*domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if len(countrySet) > 0 {
			if _, ok := countrySet[tx.Country]; !ok {
				continue
			}
		}
		day := truncateToDay(tx.InvoiceTimestamp)
		if filters.StartDate != nil && day.Before(truncateToDay(*filters.StartDate)) {
			continue
		}
		if filters.EndDate != nil && day.After(truncateToDay(*filters.EndDate)) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered
}

func buildSummary(filters *domain.DashboardFilters, transactions []*domain.Transaction) *domain.DashboardSummary {
	var totalRevenue float64
	invoices := make(map[string]struct{})
	customers := make(map[int]struct{})
	byCountry := make(map[string]float64)
	byWeek := make(map[time.Time]float64)
	byProduct := make(map[string]float64)

	for _, tx := range transactions {
		totalRevenue += tx.TotalPrice
		invoices[tx.InvoiceNo] = struct{}{}
		customers[tx.CustomerID] = struct{}{}
		byCountry[tx.Country] += tx.TotalPrice
		byWeek[weekStart(tx.InvoiceTimestamp)] += tx.TotalPrice
		byProduct[tx.Description] += tx.TotalPrice
	}

	return &domain.DashboardSummary{
		Filters:          filters,
		TotalRevenue:     utils.RoundWithTwoDecimalPlace(totalRevenue),
		TotalOrders:      len(invoices),
		UniqueCustomers:  len(customers),
		RevenueByCountry: sortCountryRevenue(byCountry),
		WeeklyRevenue:    sortWeeklyRevenue(byWeek),
		TopProducts:      topProducts(byProduct),
	}
}

func sortCountryRevenue(byCountry map[string]float64) []domain.CountryRevenue {
	out := make([]domain.CountryRevenue, 0, len(byCountry))
	for country, revenue := range byCountry {
		out = append(out, domain.CountryRevenue{
			Country: country,
			Revenue: utils.RoundWithTwoDecimalPlace(revenue),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Country < out[j].Country
	})
	return out
}

func sortWeeklyRevenue(byWeek map[time.Time]float64) []domain.WeeklyRevenue {
	out := make([]domain.WeeklyRevenue, 0, len(byWeek))
	for week, revenue := range byWeek {
		out = append(out, domain.WeeklyRevenue{
			WeekStart: week,
			Revenue:   utils.RoundWithTwoDecimalPlace(revenue),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WeekStart.Before(out[j].WeekStart)
	})
	return out
}

func topProducts(byProduct map[string]float64) []domain.ProductRevenue {
	out := make([]domain.ProductRevenue, 0, len(byProduct))
	for description, revenue := range byProduct {
		out = append(out, domain.ProductRevenue{
			Description: description,
			Revenue:     utils.RoundWithTwoDecimalPlace(revenue),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Description < out[j].Description
	})
	if len(out) > topProductsLimit {
		out = out[:topProductsLimit]
	}
	return out
}

// weekStart returns the Monday opening the week containing t.
func weekStart(t time.Time) time.Time {
	day := truncateToDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func summaryCacheKey(filters *domain.DashboardFilters) string {
	var b strings.Builder
	b.WriteString("summary")
	if len(filters.Countries) > 0 {
		sorted := append([]string(nil), filters.Countries...)
		sort.Strings(sorted)
		b.WriteString("|countries=")
		b.WriteString(strings.Join(sorted, ","))
	}
	if filters.StartDate != nil {
		b.WriteString("|start=")
		b.WriteString(filters.StartDate.Format(time.DateOnly))
	}
	if filters.EndDate != nil {
		b.WriteString("|end=")
		b.WriteString(filters.EndDate.Format(time.DateOnly))
	}
	return b.String()
}
