package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analyticsScope/internal/dashboard"
	"analyticsScope/internal/model"
)

func TestRowsFlattensEverySeries(t *testing.T) {
	snap := &dashboard.Snapshot{
		Affiliates: []*dashboard.AffiliateHistory{{
			Index:   model.Index{Name: "Acme"},
			Daily:   []*model.DailyHistory{{Base: model.Base{ID: "1_", Timestamp: 1, AccountSource: "0xa,0xb"}}},
			Weekly:  []*model.WeeklyHistory{{Base: model.Base{ID: "7_", Timestamp: 7}}},
			Monthly: []*model.MonthlyHistory{{Base: model.Base{ID: "30_", Timestamp: 30}}},
		}},
		Solvers: []*dashboard.SolverHistory{{
			Index: model.Index{Name: "Rasa"},
			Daily: []*model.SolverDailyHistory{{Base: model.Base{ID: "1_", Timestamp: 1}, Solver: "0xs"}},
		}},
		GeneratedAt: time.Unix(1, 0),
	}

	rows, err := Rows(snap)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "affiliate", rows[0].Surface)
	assert.Equal(t, model.KindDaily, rows[0].Kind)
	assert.Equal(t, "0xa,0xb", rows[0].AccountSource)
	assert.Equal(t, model.KindWeekly, rows[1].Kind)
	assert.Equal(t, int64(30), rows[2].Timestamp)
	assert.Equal(t, "solver", rows[3].Surface)
	assert.Equal(t, "Rasa", rows[3].EntityName)
	assert.Contains(t, string(rows[3].Data), `"0xs"`)
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}
