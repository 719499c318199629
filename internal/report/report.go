package report

import (
	"time"

	"github.com/zhaobenny/cchistory/internal/store"
)

// DefaultPlanPrice is the monthly subscription price used for the
// plan-vs-API comparison when no override is configured.
const DefaultPlanPrice = 200.0

// PlanComparison compares the fixed subscription price against the estimated
// pay-as-you-go API cost. Months counts every calendar year-month spanned by
// the data, whole months regardless of days active within them.
type PlanComparison struct {
	Months   int
	PlanCost float64
	APICost  float64
	Savings  float64 // negative when the plan costs more than API would
}

// Reporter provides read-only queries over the event store for rendering
type Reporter struct {
	store     *store.Store
	planPrice float64
}

// New creates a reporter. A planPrice of 0 selects DefaultPlanPrice.
func New(s *store.Store, planPrice float64) *Reporter {
	if planPrice <= 0 {
		planPrice = DefaultPlanPrice
	}
	return &Reporter{store: s, planPrice: planPrice}
}

// Overview returns database-wide statistics
func (r *Reporter) Overview() (*store.Stats, error) {
	return r.store.GetStats()
}

// Snapshots returns daily snapshots, optionally bounded by inclusive dates
func (r *Reporter) Snapshots(startDate, endDate string) ([]store.DailySnapshot, error) {
	return r.store.Snapshots(startDate, endDate)
}

// ComparePlan derives the plan-vs-API comparison from current statistics.
// Returns nil when there is no cost data to compare.
func (r *Reporter) ComparePlan() (*PlanComparison, error) {
	stats, err := r.store.GetStats()
	if err != nil {
		return nil, err
	}
	return comparePlan(stats, r.planPrice), nil
}

func comparePlan(stats *store.Stats, planPrice float64) *PlanComparison {
	if stats.TotalCost <= 0 || stats.OldestDate == "" || stats.NewestDate == "" {
		return nil
	}

	months := monthsSpanned(stats.OldestDate, stats.NewestDate)
	if months < 1 {
		months = 1
	}

	planCost := float64(months) * planPrice
	return &PlanComparison{
		Months:   months,
		PlanCost: planCost,
		APICost:  stats.TotalCost,
		Savings:  stats.TotalCost - planCost,
	}
}

// monthsSpanned counts distinct calendar year-months between two inclusive
// YYYY-MM-DD dates. Unparseable dates count as a single month.
func monthsSpanned(oldest, newest string) int {
	start, err := time.Parse("2006-01-02", oldest)
	if err != nil {
		return 1
	}
	end, err := time.Parse("2006-01-02", newest)
	if err != nil {
		return 1
	}
	if end.Before(start) {
		return 1
	}

	months := 0
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		months++
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}
