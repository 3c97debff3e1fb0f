package model

import "github.com/shopspring/decimal"

// Kind identifies a history granularity.
type Kind string

const (
	KindDaily       Kind = "daily"
	KindWeekly      Kind = "weekly"
	KindMonthly     Kind = "monthly"
	KindSolverDaily Kind = "solver_daily"
	KindTotal       Kind = "total"
)

// Labeled is implemented by buckets that carry string attributes besides the header.
type Labeled interface {
	SetLabel(name, value string)
}

// Schema describes how one history granularity is queried, decoded and combined.
type Schema[T Bucket] struct {
	Kind   Kind
	Entity string
	// Fields are the numeric fields requested and decoded.
	Fields []Field
	// Labels are string attributes requested besides id, accountSource and timestamp.
	Labels        []string
	SumFields     []Field
	AvgFields     []WeightedField
	DecimalFields []Field
	// Bucketed schemas carry a "<ts>_<suffix>" id and take part in alignment.
	Bucketed bool
	New      func() T
}

// QueryFields lists everything to select for this schema.
func (s Schema[T]) QueryFields() []string {
	out := make([]string, 0, len(s.Fields)+len(s.Labels)+3)
	out = append(out, FieldID)
	for _, f := range s.Fields {
		out = append(out, string(f))
	}
	out = append(out, s.Labels...)
	out = append(out, FieldAccountSource, FieldTimestamp)
	return out
}

// Empty builds a zero-valued bucket for ts.
func (s Schema[T]) Empty(ts int64, accountSource string) T {
	b := s.New()
	h := b.Header()
	h.ID = BucketID(ts)
	h.Timestamp = ts
	h.AccountSource = accountSource
	for _, f := range s.Fields {
		b.Set(f, decimal.Zero)
	}
	return b
}

var dailyFields = []Field{
	FieldQuotesCount,
	FieldTradeVolume,
	FieldLiquidateTradeVolume,
	FieldAveragePositionSize,
	FieldDeposit,
	FieldWithdraw,
	FieldAllocate,
	FieldDeallocate,
	FieldActiveUsers,
	FieldNewUsers,
	FieldNewAccounts,
	FieldPlatformFee,
	FieldOpenInterest,
}

// DailySchema describes affiliate daily histories.
var DailySchema = Schema[*DailyHistory]{
	Kind:      KindDaily,
	Entity:    "dailyHistories",
	Fields:    dailyFields,
	SumFields: without(dailyFields, FieldAveragePositionSize),
	AvgFields: []WeightedField{{Value: FieldAveragePositionSize, Weight: FieldQuotesCount}},
	DecimalFields: []Field{
		FieldTradeVolume,
		FieldLiquidateTradeVolume,
		FieldAveragePositionSize,
		FieldDeposit,
		FieldWithdraw,
		FieldAllocate,
		FieldDeallocate,
		FieldPlatformFee,
		FieldOpenInterest,
	},
	Bucketed: true,
	New:      func() *DailyHistory { return &DailyHistory{} },
}

// WeeklySchema describes affiliate weekly rollups.
var WeeklySchema = Schema[*WeeklyHistory]{
	Kind:          KindWeekly,
	Entity:        "weeklyHistories",
	Fields:        []Field{FieldTradeVolume, FieldActiveUsers},
	SumFields:     []Field{FieldTradeVolume, FieldActiveUsers},
	DecimalFields: []Field{FieldTradeVolume},
	Bucketed:      true,
	New:           func() *WeeklyHistory { return &WeeklyHistory{} },
}

// MonthlySchema describes affiliate monthly rollups.
var MonthlySchema = Schema[*MonthlyHistory]{
	Kind:          KindMonthly,
	Entity:        "monthlyHistories",
	Fields:        []Field{FieldTradeVolume, FieldActiveUsers},
	SumFields:     []Field{FieldTradeVolume, FieldActiveUsers},
	DecimalFields: []Field{FieldTradeVolume},
	Bucketed:      true,
	New:           func() *MonthlyHistory { return &MonthlyHistory{} },
}

var solverFields = []Field{
	FieldTradeVolume,
	FieldAveragePositionSize,
	FieldPositionsCount,
	FieldFundingPaid,
	FieldFundingReceived,
	FieldOpenInterest,
}

// SolverDailySchema describes solver daily histories.
var SolverDailySchema = Schema[*SolverDailyHistory]{
	Kind:          KindSolverDaily,
	Entity:        "solverDailyHistories",
	Fields:        solverFields,
	Labels:        []string{FieldSolver},
	SumFields:     without(solverFields, FieldAveragePositionSize),
	AvgFields:     []WeightedField{{Value: FieldAveragePositionSize, Weight: FieldPositionsCount}},
	DecimalFields: without(solverFields, FieldPositionsCount),
	Bucketed:      true,
	New:           func() *SolverDailyHistory { return &SolverDailyHistory{} },
}

var totalFields = []Field{
	FieldQuotesCount,
	FieldTradeVolume,
	FieldDeposit,
	FieldUsers,
	FieldAccounts,
	FieldPlatformFee,
	FieldOpenInterest,
}

// TotalSchema describes lifetime totals. Totals are not time bucketed.
var TotalSchema = Schema[*TotalHistory]{
	Kind:          KindTotal,
	Entity:        "totalHistories",
	Fields:        totalFields,
	SumFields:     totalFields,
	DecimalFields: []Field{FieldTradeVolume, FieldDeposit, FieldPlatformFee, FieldOpenInterest},
	New:           func() *TotalHistory { return &TotalHistory{} },
}

func without(fields []Field, drop Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f != drop {
			out = append(out, f)
		}
	}
	return out
}
