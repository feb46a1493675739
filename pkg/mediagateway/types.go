package mediagateway

import "time"

// Identity is the authenticated caller as resolved by a Verifier. Instances
// are produced fresh per request by a successful verification call and are
// never persisted.
type Identity struct {
	// Subject is the opaque subject identifier assigned by the identity provider.
	Subject string

	// Provider names the verifier that validated the credential.
	Provider string
}

// Folder describes a folder in the remote media store.
type Folder struct {
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// UploadGrant is a short-lived signed credential allowing a browser to upload
// directly into one destination folder. A new grant is computed per request;
// grants are never cached or reused.
type UploadGrant struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	Folder    string `json:"folder"`
	AccountID string `json:"account_id"`
}

// RateDecision is the outcome of a rate limit check.
type RateDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}
