package model

import "github.com/shopspring/decimal"

// WeeklyHistory holds one week of affiliate rollups.
type WeeklyHistory struct {
	Base
	TradeVolume decimal.Decimal `json:"trade_volume"`
	ActiveUsers decimal.Decimal `json:"active_users"`
}

func (h *WeeklyHistory) Get(f Field) decimal.Decimal {
	return periodGet(f, h.TradeVolume, h.ActiveUsers)
}

func (h *WeeklyHistory) Set(f Field, v decimal.Decimal) {
	periodSet(f, v, &h.TradeVolume, &h.ActiveUsers)
}

// MonthlyHistory holds one month of affiliate rollups.
type MonthlyHistory struct {
	Base
	TradeVolume decimal.Decimal `json:"trade_volume"`
	ActiveUsers decimal.Decimal `json:"active_users"`
}

func (h *MonthlyHistory) Get(f Field) decimal.Decimal {
	return periodGet(f, h.TradeVolume, h.ActiveUsers)
}

func (h *MonthlyHistory) Set(f Field, v decimal.Decimal) {
	periodSet(f, v, &h.TradeVolume, &h.ActiveUsers)
}

func periodGet(f Field, volume, users decimal.Decimal) decimal.Decimal {
	switch f {
	case FieldTradeVolume:
		return volume
	case FieldActiveUsers:
		return users
	}
	return decimal.Zero
}

func periodSet(f Field, v decimal.Decimal, volume, users *decimal.Decimal) {
	switch f {
	case FieldTradeVolume:
		*volume = v
	case FieldActiveUsers:
		*users = v
	}
}
