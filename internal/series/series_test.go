package series

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analyticsScope/internal/model"
)

const day = int64(86400)

func dailyAt(ts int64, source string, volume int64) *model.DailyHistory {
	h := model.DailySchema.Empty(ts, source)
	h.ID = model.BucketID(ts) + source
	h.TradeVolume = decimal.NewFromInt(volume)
	return h
}

type staticDecimals map[string]map[string]int

func (s staticDecimals) Lookup(environment, address string) (int, bool) {
	d, ok := s[environment][address]
	return d, ok
}

func TestDecodeDailyRecord(t *testing.T) {
	record := map[string]any{
		"id":            "1700006400_0xabc",
		"accountSource": "0xabc",
		"timestamp":     "1700006400",
		"tradeVolume":   json.Number("1234.5"),
		"quotesCount":   "7",
		"deposit":       nil,
	}

	h, err := Decode(model.DailySchema, record)
	require.NoError(t, err)

	assert.Equal(t, "0xabc", h.AccountSource)
	assert.Equal(t, int64(1700006400), h.Timestamp)
	assert.True(t, h.TradeVolume.Equal(decimal.RequireFromString("1234.5")))
	assert.True(t, h.QuotesCount.Equal(decimal.NewFromInt(7)))
	assert.True(t, h.Deposit.IsZero(), "null decodes as zero")
	assert.True(t, h.Withdraw.IsZero(), "missing decodes as zero")
}

func TestDecodeRejectsMalformedRecords(t *testing.T) {
	_, err := Decode(model.DailySchema, map[string]any{"tradeVolume": "1"})
	var shapeErr *DataShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, model.FieldID, shapeErr.Field)

	_, err = Decode(model.DailySchema, map[string]any{"id": "abc_0x1"})
	require.True(t, errors.As(err, &shapeErr), "id without timestamp prefix")

	_, err = Decode(model.DailySchema, map[string]any{"id": "1_0x1", "tradeVolume": "lots"})
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, string(model.FieldTradeVolume), shapeErr.Field)

	_, err = Decode(model.DailySchema, map[string]any{"id": "1_0x1", "tradeVolume": true})
	require.Error(t, err)
}

func TestDecodeSolverLabel(t *testing.T) {
	h, err := Decode(model.SolverDailySchema, map[string]any{
		"id":             "86400_0xsolver_0xc",
		"solver":         "0xsolver",
		"positionsCount": "3",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xsolver", h.Solver)
	assert.Equal(t, day, h.Timestamp, "timestamp falls back to id prefix")
}

func TestRescale(t *testing.T) {
	h := model.DailySchema.Empty(day, "0xa")
	h.Deposit = decimal.NewFromInt(1000)
	h.QuotesCount = decimal.NewFromInt(5)

	require.NoError(t, Rescale(h, 6, model.DailySchema.DecimalFields))
	assert.True(t, h.Deposit.Equal(decimal.NewFromInt(1000).Shift(12)), "got %s", h.Deposit)
	assert.True(t, h.QuotesCount.Equal(decimal.NewFromInt(5)), "counts are not rescaled")

	g := model.DailySchema.Empty(day, "0xa")
	g.Deposit = decimal.NewFromInt(1000)
	require.NoError(t, Rescale(g, 18, model.DailySchema.DecimalFields))
	assert.True(t, g.Deposit.Equal(decimal.NewFromInt(1000)))

	assert.Error(t, Rescale(g, 19, model.DailySchema.DecimalFields))
	assert.Error(t, Rescale(g, -1, model.DailySchema.DecimalFields))
}

func TestNormalizerDecoder(t *testing.T) {
	n := NewNormalizer(staticDecimals{"base": {"0xabc": 6}, "bnb": {"0xabc": 18}})

	decode, err := Decoder(n, model.TotalSchema, "base", "0xABC")
	require.NoError(t, err)

	h, err := decode(map[string]any{"id": "total_0xabc", "tradeVolume": "2", "users": "4"})
	require.NoError(t, err)
	assert.True(t, h.TradeVolume.Equal(decimal.RequireFromString("2000000000000")))
	assert.True(t, h.Users.Equal(decimal.NewFromInt(4)))

	decode, err = Decoder(n, model.TotalSchema, "bnb", "0xabc")
	require.NoError(t, err)
	h, err = decode(map[string]any{"id": "total_0xabc", "tradeVolume": "2"})
	require.NoError(t, err)
	assert.True(t, h.TradeVolume.Equal(decimal.NewFromInt(2)))

	_, err = Decoder(n, model.TotalSchema, "base", "0xmissing")
	assert.Error(t, err)
	_, err = Decoder(n, model.TotalSchema, "arb", "0xabc")
	assert.Error(t, err)
}

func TestCollectAllDatesAndJustify(t *testing.T) {
	a := []*model.DailyHistory{dailyAt(1*day, "0xa", 1), dailyAt(2*day, "0xa", 2), dailyAt(4*day, "0xa", 4)}
	b := []*model.DailyHistory{dailyAt(2*day, "0xb", 5), dailyAt(3*day, "0xb", 6)}
	groups := []*model.GroupedHistory[*model.DailyHistory]{
		{Index: model.Index{Name: "A", Address: "0xa"}, Daily: a},
		{Index: model.Index{Name: "B", Address: "0xb"}, Daily: b},
	}

	dates := CollectAllDates(groups, model.KindDaily)
	assert.Equal(t, []int64{1 * day, 2 * day, 3 * day, 4 * day}, dates.Sorted())

	got, err := Justify(model.DailySchema, a, dates, "")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Same(t, a[0], got[0])
	assert.Same(t, a[1], got[1])
	assert.Same(t, a[2], got[3])

	filler := got[2]
	assert.Equal(t, "259200_", filler.ID)
	assert.Equal(t, "0xa", filler.AccountSource)
	assert.True(t, filler.TradeVolume.IsZero())
}

func TestJustifyIsIdempotent(t *testing.T) {
	s := []*model.DailyHistory{dailyAt(2*day, "0xa", 1), dailyAt(5*day, "0xa", 2)}
	dates := Dates{}
	for _, ts := range []int64{1 * day, 2 * day, 3 * day, 5 * day} {
		dates.Add(ts)
	}

	once, err := Justify(model.DailySchema, s, dates, "")
	require.NoError(t, err)
	twice, err := Justify(model.DailySchema, once, dates, "")
	require.NoError(t, err)

	require.Len(t, twice, len(once))
	for i := range once {
		assert.Same(t, once[i], twice[i])
	}
}

func TestJustifyEmptySeries(t *testing.T) {
	dates := Dates{}
	dates.Add(day)

	got, err := Justify(model.DailySchema, nil, dates, "0xfallback")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xfallback", got[0].AccountSource)

	_, err = Justify(model.DailySchema, nil, dates, "")
	var alignErr *AlignmentError
	assert.True(t, errors.As(err, &alignErr))

	got, err = Justify(model.DailySchema, nil, Dates{}, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCombineSumsExactly(t *testing.T) {
	a := model.DailySchema.Empty(day, "0xa")
	a.TradeVolume = decimal.RequireFromString("100.000000000000000001")
	b := model.DailySchema.Empty(day, "0xb")
	b.TradeVolume = decimal.NewFromInt(150)

	got := Combine(model.DailySchema, []*model.DailyHistory{a, b})
	assert.Equal(t, "250.000000000000000001", got.TradeVolume.String())
	assert.Equal(t, "0xa,0xb", got.AccountSource)
	assert.Equal(t, a.ID, got.ID)
}

func TestCombineWeightedAverage(t *testing.T) {
	a := model.DailySchema.Empty(day, "0xa")
	a.AveragePositionSize = decimal.NewFromInt(10)
	a.QuotesCount = decimal.NewFromInt(2)
	b := model.DailySchema.Empty(day, "0xb")
	b.AveragePositionSize = decimal.NewFromInt(20)
	b.QuotesCount = decimal.NewFromInt(8)

	got := Combine(model.DailySchema, []*model.DailyHistory{a, b})
	assert.True(t, got.AveragePositionSize.Equal(decimal.NewFromInt(18)), "got %s", got.AveragePositionSize)
	assert.True(t, got.QuotesCount.Equal(decimal.NewFromInt(10)))

	zero := Combine(model.DailySchema, []*model.DailyHistory{
		model.DailySchema.Empty(day, "0xa"),
		model.DailySchema.Empty(day, "0xb"),
	})
	assert.True(t, zero.AveragePositionSize.IsZero())
}

func TestMergePairPassesTailThrough(t *testing.T) {
	a := []*model.DailyHistory{dailyAt(day, "0xa", 1), dailyAt(2*day, "0xa", 2), dailyAt(3*day, "0xa", 3)}
	b := []*model.DailyHistory{dailyAt(day, "0xb", 10)}

	got := MergePair(model.DailySchema, a, b)
	require.Len(t, got, 3)
	assert.True(t, got[0].TradeVolume.Equal(decimal.NewFromInt(11)))
	assert.Same(t, a[1], got[1])
	assert.Same(t, a[2], got[2])
}

func TestMergeByNameAcme(t *testing.T) {
	groups := []*model.GroupedHistory[*model.DailyHistory]{
		{Index: model.Index{ID: 0, Name: "Acme", Address: "0xa"}, Daily: []*model.DailyHistory{dailyAt(day, "0xa", 100)}},
		{Index: model.Index{ID: 1, Name: "Other", Address: "0xo"}, Daily: []*model.DailyHistory{dailyAt(day, "0xo", 7)}},
		{Index: model.Index{ID: 2, Name: "Acme", Address: "0xb"}, Daily: []*model.DailyHistory{dailyAt(day, "0xb", 200)}},
	}

	got := MergeByName(groups, model.DailySchema)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].Index.Name)
	assert.Equal(t, "Other", got[1].Index.Name)

	require.Len(t, got[0].Daily, 1)
	assert.True(t, got[0].Daily[0].TradeVolume.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "0xa,0xb", got[0].Daily[0].AccountSource)
}

func TestCollapseSameDay(t *testing.T) {
	first := model.SolverDailySchema.Empty(day, "0xa")
	first.ID = "86400_0xs_0xc1"
	first.Timestamp = day + 10
	first.TradeVolume = decimal.NewFromInt(5)
	second := model.SolverDailySchema.Empty(day, "0xa")
	second.ID = "86400_0xs_0xc2"
	second.Timestamp = day + 20
	second.TradeVolume = decimal.NewFromInt(7)
	next := model.SolverDailySchema.Empty(2*day, "0xa")

	got := Collapse(model.SolverDailySchema, []*model.SolverDailyHistory{first, second, next})
	require.Len(t, got, 2)
	assert.True(t, got[0].TradeVolume.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, day+20, got[0].Timestamp)
	assert.Same(t, next, got[1])
}

func TestLastCalendarMonth(t *testing.T) {
	now := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	dec1 := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC).Unix()
	dec31 := time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC).Unix()
	nov30 := time.Date(2023, time.November, 30, 0, 0, 0, 0, time.UTC).Unix()
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()

	s := []*model.DailyHistory{dailyAt(nov30, "0xa", 1), dailyAt(dec1, "0xa", 2), dailyAt(dec31, "0xa", 3), dailyAt(jan1, "0xa", 4)}
	got := LastCalendarMonth(s, now)
	require.Len(t, got, 2)
	assert.Same(t, s[1], got[0])
	assert.Same(t, s[2], got[1])
}

func TestLastAndSecondToLast(t *testing.T) {
	a := []*model.MonthlyHistory{model.MonthlySchema.Empty(1, "0xa"), model.MonthlySchema.Empty(2, "0xa")}
	b := []*model.MonthlyHistory{model.MonthlySchema.Empty(2, "0xb")}

	assert.Equal(t, []*model.MonthlyHistory{a[1], b[0]}, Last(a, b, []*model.MonthlyHistory{}))
	assert.Equal(t, []*model.MonthlyHistory{a[0]}, SecondToLast(a, b))
}
