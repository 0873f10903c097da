// Package identity implements the Vaultline identity layer.
//
// It provides:
//   - KeyManager       — creates/loads the RS256 signing keypair
//   - TokenIssuer      — issues and verifies RS256 JWT session tokens
//   - RequireIdentity  — Gin middleware enforcing Bearer session-token authentication
//
// The middleware is the only place an Identity is ever constructed: downstream
// handlers read the acting identity from the request context via IdentityFromCtx
// and never from client-supplied payload fields.
package identity
