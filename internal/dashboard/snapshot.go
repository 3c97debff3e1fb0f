package dashboard

import (
	"time"

	"analyticsScope/internal/model"
)

// AffiliateHistory is one merged affiliate with daily, weekly and monthly series.
type AffiliateHistory = model.GroupedHistory[*model.DailyHistory]

// SolverHistory is one merged solver with its daily series.
type SolverHistory = model.GroupedHistory[*model.SolverDailyHistory]

// Summary holds the headline figures across all affiliates.
type Summary struct {
	// Today combines the latest daily bucket of every affiliate.
	Today *model.DailyHistory `json:"today"`
	// LastMonth combines every daily bucket of the previous calendar month.
	LastMonth *model.DailyHistory `json:"last_month"`
	// Total combines the lifetime totals of every affiliate.
	Total *model.TotalHistory `json:"total"`
	// LastMonthly combines the last complete monthly bucket of every affiliate.
	LastMonthly *model.MonthlyHistory `json:"last_monthly"`
}

// Snapshot is the reconciled output of one refresh.
type Snapshot struct {
	Affiliates []*AffiliateHistory `json:"affiliates"`
	Solvers    []*SolverHistory    `json:"solvers"`
	Summary    Summary             `json:"summary"`
	// Decimals is keyed by environment, then address.
	Decimals    map[string]map[string]int `json:"decimals"`
	GeneratedAt time.Time                 `json:"generated_at"`
}
