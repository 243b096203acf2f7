package model

// IdentityClaims is the caller identity extracted from a verified token.
type IdentityClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// UserAttributes holds the display attributes reconciled for a user.
// Either field may be empty when no collection supplied a value.
type UserAttributes struct {
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// UserRecord is the per-user aggregation output. It is built fresh on every
// call and never persisted.
type UserRecord struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name,omitempty"`
	Email       string         `json:"email,omitempty"`
	Counts      map[string]int `json:"counts"`
	Usage       *UsageSummary  `json:"usage,omitempty"`
	// Unavailable lists collections whose count query failed; their zero
	// entries in Counts mean "unknown", not "confirmed zero".
	Unavailable []string `json:"unavailable,omitempty"`
}

// ReconcileResult is the merged identity view across every collection that
// can mention a user. Failures records collections that could not be
// scanned, so callers can tell "no users" apart from "scan failed".
type ReconcileResult struct {
	Users    map[string]UserAttributes `json:"users"`
	Failures map[string]string         `json:"failures,omitempty"`
}
