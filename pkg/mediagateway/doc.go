// Package mediagateway provides the media management gateway used by the
// dashboard: folder administration and asset deletion against a remote media
// store, plus issuance of short-lived signed upload grants so browsers can
// upload directly to the store without the server mediating file bytes.
//
// The package exposes a single Service interface. Every mutating operation
// runs the same request-scoped pipeline: verify the caller's bearer token,
// check the per-identity rate limit, sanitize the user-supplied path, then
// issue one call to the configured MediaStore backend. Any stage failure
// short-circuits; verification failure never reaches the store.
//
// Implementations of MediaStore (remote provider API, S3-compatible, memory)
// and Verifier (identity provider, local JWT, static) live in subpackages.
package mediagateway
