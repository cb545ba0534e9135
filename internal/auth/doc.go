// Package auth issues and verifies the HS256 bearer tokens that guard the
// mutating setup endpoints.
//
// The model is deliberately small: an observer role that can only read and
// an operator role that may change settings, select the roof and force the
// manual override. Tokens are minted offline with the `safetymonitor token`
// subcommand; there are no user accounts.
package auth
