package model

import "github.com/shopspring/decimal"

// SolverDailyHistory holds one day of solver metrics for one collateral.
type SolverDailyHistory struct {
	Base
	Solver              string          `json:"solver"`
	TradeVolume         decimal.Decimal `json:"trade_volume"`
	AveragePositionSize decimal.Decimal `json:"average_position_size"`
	PositionsCount      decimal.Decimal `json:"positions_count"`
	FundingPaid         decimal.Decimal `json:"funding_paid"`
	FundingReceived     decimal.Decimal `json:"funding_received"`
	OpenInterest        decimal.Decimal `json:"open_interest"`
}

func (h *SolverDailyHistory) field(f Field) *decimal.Decimal {
	switch f {
	case FieldTradeVolume:
		return &h.TradeVolume
	case FieldAveragePositionSize:
		return &h.AveragePositionSize
	case FieldPositionsCount:
		return &h.PositionsCount
	case FieldFundingPaid:
		return &h.FundingPaid
	case FieldFundingReceived:
		return &h.FundingReceived
	case FieldOpenInterest:
		return &h.OpenInterest
	}
	return nil
}

func (h *SolverDailyHistory) Get(f Field) decimal.Decimal {
	if p := h.field(f); p != nil {
		return *p
	}
	return decimal.Zero
}

func (h *SolverDailyHistory) Set(f Field, v decimal.Decimal) {
	if p := h.field(f); p != nil {
		*p = v
	}
}

// SetLabel stores non-numeric attributes requested through Schema.Labels.
func (h *SolverDailyHistory) SetLabel(name, value string) {
	if name == FieldSolver {
		h.Solver = value
	}
}
