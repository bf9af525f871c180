// Package identity provides a reference implementation of the
// [authgate.CredentialVerifier] collaborator: an in-memory store of
// bcrypt-hashed credentials. It exists for examples and tests; production
// deployments supply their own verifier backed by real persistence.
package identity
