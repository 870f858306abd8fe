package models

// Session statuses used throughout the codebase.
const (
	StatusOngoing   = "ongoing"
	StatusAgreement = "agreement"
	StatusFailed    = "failed"
)

// Agent roles.
const (
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
)

// Scored term dimensions.
const (
	TermPrice        = "price"
	TermDeliveryDays = "delivery_days"
	TermUpfrontPct   = "upfront_pct"
)

// Default limits.
const (
	DefaultMaxTurns           = 10
	DefaultMaxConcurrent      = 8
	DefaultEventChannelBuffer = 256
	DefaultReportListLimit    = 1000
)
