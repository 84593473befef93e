package models

// AuthMethod names the provider that refreshes use.
type AuthMethod string

const (
	AuthMethodAugment AuthMethod = "augment"
	AuthMethodOrb     AuthMethod = "orb"
	AuthMethodNone    AuthMethod = "none"
)

// AuthStatus is the backend's view of which credentials are configured.
type AuthStatus struct {
	IsAuthenticated     bool       `json:"is_authenticated"`
	IsAugmentConfigured bool       `json:"is_augment_configured"`
	IsOrbConfigured     bool       `json:"is_orb_configured"`
	UserEmail           string     `json:"user_email,omitempty"`
	AuthMethod          AuthMethod `json:"auth_method"`
}

// SignedOut returns the initial, unauthenticated status.
func SignedOut() AuthStatus {
	return AuthStatus{AuthMethod: AuthMethodNone}
}

// ConnectionStatus reflects the outcome of the most recent backend call.
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionError        ConnectionStatus = "error"
)

// LegacyConfig is the token-free summary of the legacy portal setup.
type LegacyConfig struct {
	CustomerID    string `json:"customer_id,omitempty"`
	PricingUnitID string `json:"pricing_unit_id,omitempty"`
	HasToken      bool   `json:"has_token"`
	IsConfigured  bool   `json:"is_configured"`
}

// SessionResult is returned once a credential has been exchanged.
type SessionResult struct {
	Success bool    `json:"success"`
	Email   string  `json:"email"`
	Balance Balance `json:"balance"`
}

// CreditsResult is the primary provider's balance read.
type CreditsResult struct {
	CreditsRemaining int64   `json:"credits_remaining"`
	CreditsUsed      int64   `json:"credits_used"`
	Balance          Balance `json:"balance"`
}

// SubscriptionInfo describes the current plan.
type SubscriptionInfo struct {
	PlanName         string   `json:"plan_name"`
	BillingPeriodEnd string   `json:"billing_period_end"`
	CreditsIncluded  int64    `json:"credits_included"`
	CreditsRenewing  int64    `json:"credits_renewing"`
	TrialGrant       int64    `json:"trial_grant"`
	PlanFacts        []string `json:"plan_facts"`
}
