package model

import "github.com/shopspring/decimal"

// DailyHistory holds one day of affiliate metrics.
type DailyHistory struct {
	Base
	QuotesCount          decimal.Decimal `json:"quotes_count"`
	TradeVolume          decimal.Decimal `json:"trade_volume"`
	LiquidateTradeVolume decimal.Decimal `json:"liquidate_trade_volume"`
	AveragePositionSize  decimal.Decimal `json:"average_position_size"`
	Deposit              decimal.Decimal `json:"deposit"`
	Withdraw             decimal.Decimal `json:"withdraw"`
	Allocate             decimal.Decimal `json:"allocate"`
	Deallocate           decimal.Decimal `json:"deallocate"`
	ActiveUsers          decimal.Decimal `json:"active_users"`
	NewUsers             decimal.Decimal `json:"new_users"`
	NewAccounts          decimal.Decimal `json:"new_accounts"`
	PlatformFee          decimal.Decimal `json:"platform_fee"`
	OpenInterest         decimal.Decimal `json:"open_interest"`
}

func (h *DailyHistory) field(f Field) *decimal.Decimal {
	switch f {
	case FieldQuotesCount:
		return &h.QuotesCount
	case FieldTradeVolume:
		return &h.TradeVolume
	case FieldLiquidateTradeVolume:
		return &h.LiquidateTradeVolume
	case FieldAveragePositionSize:
		return &h.AveragePositionSize
	case FieldDeposit:
		return &h.Deposit
	case FieldWithdraw:
		return &h.Withdraw
	case FieldAllocate:
		return &h.Allocate
	case FieldDeallocate:
		return &h.Deallocate
	case FieldActiveUsers:
		return &h.ActiveUsers
	case FieldNewUsers:
		return &h.NewUsers
	case FieldNewAccounts:
		return &h.NewAccounts
	case FieldPlatformFee:
		return &h.PlatformFee
	case FieldOpenInterest:
		return &h.OpenInterest
	}
	return nil
}

// Get returns the value of f, or zero when f is not a daily field.
func (h *DailyHistory) Get(f Field) decimal.Decimal {
	if p := h.field(f); p != nil {
		return *p
	}
	return decimal.Zero
}

// Set assigns f; unknown fields are ignored.
func (h *DailyHistory) Set(f Field, v decimal.Decimal) {
	if p := h.field(f); p != nil {
		*p = v
	}
}
