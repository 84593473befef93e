package rpc

import "github.com/j-veylop/creditbar/internal/models"

// Method names. These are part of the wire contract and must stay stable.
const (
	MethodTestConnection        = "test_connection"
	MethodGetCurrentBalance     = "get_current_balance"
	MethodFetchFreshBalance     = "fetch_fresh_balance"
	MethodGetUsageAnalytics     = "get_usage_analytics"
	MethodGetConfig             = "get_config"
	MethodUpdateConfig          = "update_config"
	MethodTriggerManualUpdate   = "trigger_manual_update"
	MethodShowWindow            = "show_window"
	MethodHideWindow            = "hide_window"
	MethodToggleWindow          = "toggle_window"
	MethodGetWindowVisibility   = "get_window_visibility"
	MethodParsePortalURL        = "parse_portal_url"
	MethodGetLegacyConfig       = "get_legacy_config"
	MethodClearLegacyConfig     = "clear_legacy_config"
	MethodSaveSessionCredential = "save_session_credential"
	MethodGetAuthStatus         = "get_auth_status"
	MethodFetchCredits          = "fetch_credits"
	MethodFetchSubscription     = "fetch_subscription"
	MethodFetchAnalytics        = "fetch_analytics"
	MethodClearSession          = "clear_session"
)

// Push event names.
const (
	EventBalanceUpdated = "balance-updated"
	EventConfigChanged  = "config-changed"
)

// HoursParams is the argument of get_usage_analytics.
type HoursParams struct {
	Hours int `json:"hours"`
}

// DaysParams is the argument of fetch_analytics.
type DaysParams struct {
	Days int `json:"days"`
}

// ConfigParams is the argument of update_config.
type ConfigParams struct {
	Config models.AppConfig `json:"new_config"`
}

// URLParams is the argument of parse_portal_url.
type URLParams struct {
	URL string `json:"url"`
}

// CredentialParams is the argument of save_session_credential.
type CredentialParams struct {
	Secret string `json:"secret"`
}
