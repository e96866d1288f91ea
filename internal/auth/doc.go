// Package auth implements shared-secret bearer token verification for
// the relay API. Operators, rover clients, and observers carry distinct
// scopes; an empty secret disables verification for local development.
package auth
