package dashboard

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analyticsScope/internal/config"
	"analyticsScope/internal/model"
	"analyticsScope/internal/subgraph"
)

const (
	acmeBase = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	acmeBnb  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	beta     = "0xcccccccccccccccccccccccccccccccccccccccc"
	ghost    = "0xdddddddddddddddddddddddddddddddddddddddd"
	rasaBase = "0x1111111111111111111111111111111111111111"
	rasaBnb  = "0x2222222222222222222222222222222222222222"

	d1  = int64(1704067200) // 2024-01-01
	d2  = d1 + 86400
	d3  = d2 + 86400
	dec = int64(1701388800) // 2023-12-01
)

// fakeSubgraph serves fixture entities filtered by *_contains, timestamp_gte and id_not_in.
type fakeSubgraph struct {
	entities map[string][]subgraph.Record
	err      error
}

func (f *fakeSubgraph) Query(_ context.Context, requests []subgraph.Request) (map[string][]subgraph.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]subgraph.Record, len(requests))
	for _, r := range requests {
		from := int64(-1)
		filters := map[string]string{}
		excluded := map[string]bool{}
		for _, c := range r.Conditions {
			value, _ := strconv.Unquote(c.Value)
			switch c.Operator {
			case "gte":
				from, _ = strconv.ParseInt(value, 10, 64)
			case "contains":
				filters[c.Field] = value
			case "not_in":
				for _, quoted := range strings.Split(strings.Trim(c.Value, "[]"), ",") {
					id, _ := strconv.Unquote(quoted)
					excluded[id] = true
				}
			}
		}

		page := make([]subgraph.Record, 0)
		for _, rec := range f.entities[r.Entity] {
			ts, _ := strconv.ParseInt(rec["timestamp"].(string), 10, 64)
			if ts < from || excluded[rec["id"].(string)] {
				continue
			}
			match := true
			for field, want := range filters {
				got, _ := rec[field].(string)
				if !strings.Contains(got, want) {
					match = false
				}
			}
			if !match {
				continue
			}
			if len(page) == r.First {
				break
			}
			page = append(page, rec)
		}
		out[r.Name] = page
	}
	return out, nil
}

func rec(ts int64, source string, fields map[string]string) subgraph.Record {
	r := subgraph.Record{
		"id":            strconv.FormatInt(ts, 10) + "_" + source,
		"accountSource": source,
		"timestamp":     strconv.FormatInt(ts, 10),
	}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

func solverRec(ts int64, solver, collateral string, fields map[string]string) subgraph.Record {
	r := rec(ts, solver, fields)
	r["id"] = strconv.FormatInt(ts, 10) + "_" + solver + "_" + collateral
	r["solver"] = solver
	return r
}

func e18(v string) decimal.Decimal {
	return decimal.RequireFromString(v).Shift(18)
}

func fixture() ([]config.Environment, map[string]*fakeSubgraph) {
	six, eighteen := 6, 18
	envs := []config.Environment{
		{
			Name:              "base",
			SubgraphURL:       "https://base",
			CollateralDecimal: &six,
			Collaterals:       []string{"0x9999999999999999999999999999999999999999"},
			Affiliates: []config.Affiliate{
				{Name: "Acme", Address: acmeBase},
				{Name: "Beta", Address: beta},
				{Name: "Ghost", Address: ghost},
			},
			Solvers: []config.Solver{{Name: "Rasa", Address: rasaBase}},
		},
		{
			Name:              "bnb",
			SubgraphURL:       "https://bnb",
			CollateralDecimal: &eighteen,
			Affiliates:        []config.Affiliate{{Name: "Acme", Address: acmeBnb}},
			Solvers:           []config.Solver{{Name: "Rasa", Address: rasaBnb}},
		},
	}

	services := map[string]*fakeSubgraph{
		"https://base": {entities: map[string][]subgraph.Record{
			"dailyHistories": {
				rec(d1, acmeBase, map[string]string{"tradeVolume": "100000000", "quotesCount": "2", "averagePositionSize": "10000000"}),
				rec(d2, acmeBase, map[string]string{"tradeVolume": "50000000"}),
				rec(d2, beta, map[string]string{"tradeVolume": "1000000"}),
			},
			"totalHistories": {
				rec(0, acmeBase, map[string]string{"tradeVolume": "150000000", "users": "3"}),
				rec(0, beta, map[string]string{"tradeVolume": "1000000", "users": "1"}),
			},
			"monthlyHistories": {
				rec(dec, acmeBase, map[string]string{"tradeVolume": "10000000", "activeUsers": "2"}),
				rec(d1, acmeBase, map[string]string{"tradeVolume": "20000000", "activeUsers": "1"}),
			},
			"solverDailyHistories": {
				solverRec(d1, rasaBase, "c1", map[string]string{"tradeVolume": "1000000", "positionsCount": "1", "averagePositionSize": "1000000"}),
				solverRec(d1, rasaBase, "c2", map[string]string{"tradeVolume": "1000000", "positionsCount": "3", "averagePositionSize": "3000000"}),
			},
		}},
		"https://bnb": {entities: map[string][]subgraph.Record{
			"dailyHistories": {
				rec(d1, acmeBnb, map[string]string{"tradeVolume": "200000000000000000000", "quotesCount": "8", "averagePositionSize": "20000000000000000000"}),
				rec(d3, acmeBnb, map[string]string{"tradeVolume": "1000000000000000000"}),
			},
			"totalHistories": {
				rec(0, acmeBnb, map[string]string{"tradeVolume": "201000000000000000000", "users": "5"}),
			},
			"solverDailyHistories": {
				solverRec(d2, rasaBnb, "c1", map[string]string{"tradeVolume": "5000000000000000000"}),
			},
		}},
	}
	return envs, services
}

func newTestPipeline(t *testing.T, envs []config.Environment, services map[string]*fakeSubgraph) *Pipeline {
	t.Helper()
	p, err := NewPipeline(envs, func(endpoint string) subgraph.QueryService {
		return services[endpoint]
	}, Options{
		PageSize:    2,
		Concurrency: 3,
		Now:         func() time.Time { return time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC) },
	}, nil)
	require.NoError(t, err)
	return p
}

func TestPipelineBuild(t *testing.T) {
	envs, services := fixture()
	snap, err := newTestPipeline(t, envs, services).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Affiliates, 2, "Ghost has no data and Acme is merged")
	acme, betaHist := snap.Affiliates[0], snap.Affiliates[1]
	assert.Equal(t, "Acme", acme.Index.Name)
	assert.Equal(t, "Beta", betaHist.Index.Name)

	require.Len(t, acme.Daily, 3)
	require.Len(t, betaHist.Daily, 3)

	day1 := acme.Daily[0]
	assert.True(t, day1.TradeVolume.Equal(e18("300")), "got %s", day1.TradeVolume)
	assert.True(t, day1.QuotesCount.Equal(decimal.NewFromInt(10)))
	assert.True(t, day1.AveragePositionSize.Equal(e18("18")), "got %s", day1.AveragePositionSize)
	assert.Equal(t, acmeBase+","+acmeBnb, day1.AccountSource)
	assert.True(t, acme.Daily[1].TradeVolume.Equal(e18("50")))
	assert.True(t, acme.Daily[2].TradeVolume.Equal(e18("1")))

	filler := betaHist.Daily[0]
	assert.Equal(t, model.BucketID(d1), filler.ID)
	assert.Equal(t, beta, filler.AccountSource)
	assert.True(t, filler.TradeVolume.IsZero())

	require.Len(t, acme.Monthly, 2)
	assert.True(t, acme.Monthly[0].TradeVolume.Equal(e18("10")))
	assert.Empty(t, acme.Weekly)

	sum := snap.Summary
	assert.True(t, sum.Today.TradeVolume.Equal(e18("1")), "got %s", sum.Today.TradeVolume)
	assert.True(t, sum.LastMonth.TradeVolume.Equal(e18("352")), "got %s", sum.LastMonth.TradeVolume)
	assert.True(t, sum.Total.TradeVolume.Equal(e18("352")), "got %s", sum.Total.TradeVolume)
	assert.True(t, sum.Total.Users.Equal(decimal.NewFromInt(9)))
	assert.True(t, sum.LastMonthly.TradeVolume.Equal(e18("10")))

	require.Len(t, snap.Solvers, 1)
	rasa := snap.Solvers[0]
	require.Len(t, rasa.Daily, 2)
	assert.True(t, rasa.Daily[0].TradeVolume.Equal(e18("2")))
	assert.True(t, rasa.Daily[0].PositionsCount.Equal(decimal.NewFromInt(4)))
	assert.True(t, rasa.Daily[0].AveragePositionSize.Equal(e18("2.5")), "got %s", rasa.Daily[0].AveragePositionSize)
	assert.True(t, rasa.Daily[1].TradeVolume.Equal(e18("5")))

	assert.Equal(t, 6, snap.Decimals["base"][acmeBase])
	assert.Equal(t, 18, snap.Decimals["bnb"][rasaBnb])
}

func TestPipelineFailsOnTransportError(t *testing.T) {
	envs, services := fixture()
	services["https://bnb"].err = &subgraph.TransportError{Endpoint: "https://bnb", Status: 503, Err: errors.New("unavailable")}

	snap, err := newTestPipeline(t, envs, services).Build(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)

	var te *subgraph.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestPipelineFailsOnMalformedRecord(t *testing.T) {
	envs, services := fixture()
	services["https://base"].entities["dailyHistories"][0]["tradeVolume"] = "not-a-number"

	_, err := newTestPipeline(t, envs, services).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tradeVolume")
}

func TestNewPipelineNeedsDecimals(t *testing.T) {
	_, err := NewPipeline([]config.Environment{{Name: "x"}}, func(string) subgraph.QueryService { return nil }, Options{}, nil)
	assert.Error(t, err)
}
