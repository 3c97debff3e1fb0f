package model

import "github.com/shopspring/decimal"

// TotalHistory is the lifetime total of one affiliate and collateral.
type TotalHistory struct {
	Base
	QuotesCount  decimal.Decimal `json:"quotes_count"`
	TradeVolume  decimal.Decimal `json:"trade_volume"`
	Deposit      decimal.Decimal `json:"deposit"`
	Users        decimal.Decimal `json:"users"`
	Accounts     decimal.Decimal `json:"accounts"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	OpenInterest decimal.Decimal `json:"open_interest"`
}

func (h *TotalHistory) field(f Field) *decimal.Decimal {
	switch f {
	case FieldQuotesCount:
		return &h.QuotesCount
	case FieldTradeVolume:
		return &h.TradeVolume
	case FieldDeposit:
		return &h.Deposit
	case FieldUsers:
		return &h.Users
	case FieldAccounts:
		return &h.Accounts
	case FieldPlatformFee:
		return &h.PlatformFee
	case FieldOpenInterest:
		return &h.OpenInterest
	}
	return nil
}

func (h *TotalHistory) Get(f Field) decimal.Decimal {
	if p := h.field(f); p != nil {
		return *p
	}
	return decimal.Zero
}

func (h *TotalHistory) Set(f Field, v decimal.Decimal) {
	if p := h.field(f); p != nil {
		*p = v
	}
}
