package model

// Field names a numeric metric as it appears in the subgraph schema.
type Field string

const (
	FieldQuotesCount          Field = "quotesCount"
	FieldTradeVolume          Field = "tradeVolume"
	FieldLiquidateTradeVolume Field = "liquidateTradeVolume"
	FieldAveragePositionSize  Field = "averagePositionSize"
	FieldDeposit              Field = "deposit"
	FieldWithdraw             Field = "withdraw"
	FieldAllocate             Field = "allocate"
	FieldDeallocate           Field = "deallocate"
	FieldActiveUsers          Field = "activeUsers"
	FieldNewUsers             Field = "newUsers"
	FieldNewAccounts          Field = "newAccounts"
	FieldPlatformFee          Field = "platformFee"
	FieldOpenInterest         Field = "openInterest"
	FieldPositionsCount       Field = "positionsCount"
	FieldFundingPaid          Field = "fundingPaid"
	FieldFundingReceived      Field = "fundingReceived"
	FieldUsers                Field = "users"
	FieldAccounts             Field = "accounts"
)

// Header fields present on every record.
const (
	FieldID            = "id"
	FieldAccountSource = "accountSource"
	FieldTimestamp     = "timestamp"
	FieldSolver        = "solver"
	FieldCollateral    = "collateral"
)

// WeightedField pairs an averaged field with the field used as its weight.
type WeightedField struct {
	Value  Field
	Weight Field
}
