package models

// Categories
const (
	CategoryUncategorized = "Uncategorized"
	CategoryGroceries     = "Groceries"
	CategoryTransport     = "Transportation"
	CategoryRent          = "Rent"
	CategoryDining        = "Dining"
	CategorySubscriptions = "Subscriptions"
	CategoryIncome        = "Income"
	CategoryShopping      = "Shopping"
	CategoryTravel        = "Travel"
)

// Budget periods
const (
	PeriodMonthly = "monthly"
)

// Confidence values used outside of a trained model
const (
	ConfidenceFeedback      = 1.0
	ConfidenceKeyword       = 0.35
	ConfidenceUncategorized = 0.1
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
