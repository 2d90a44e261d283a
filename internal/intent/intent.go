// Package intent classifies inbound chat messages into routing intents and
// detects phrases that force an immediate escalation.
package intent

// Intent is the routing category of a message
type Intent string

const (
	RequestHuman           Intent = "REQUEST_HUMAN"
	ConfirmationYes        Intent = "CONFIRMATION_YES"
	ConfirmationNo         Intent = "CONFIRMATION_NO"
	GeneralConversation    Intent = "GENERAL_CONVERSATION"
	PricingNegotiation     Intent = "PRICING_NEGOTIATION"
	SensitiveAccountAction Intent = "SENSITIVE_ACCOUNT_ACTION"
	Troubleshooting        Intent = "TROUBLESHOOTING"
	FactualKB              Intent = "FACTUAL_KB"
	Other                  Intent = "OTHER"
)

// Tier names of the built-in pattern set that callers branch on
const (
	TierGreeting       = "greeting"
	TierAcknowledgment = "acknowledgment"
	TierDefault        = "default"
)

// Result is the outcome of classifying one message
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Tier       string  `json:"tier"`
	Locale     string  `json:"locale,omitempty"`
}
