// Package auth provides the user authentication and administration
// workflows of the auth service: registration with an approval step,
// login with refresh tokens, password reset by email and role gated user
// management.
//
// Roles:
//   - Admin, Manager and Driver form an ordered hierarchy. Nobody may assign
//     a role above their own or deactivate a user who outranks them.
//   - The first registered user becomes an active Admin, everyone else waits
//     for approval as an inactive Driver.
//
// Tokens:
//   - TokenService signs access and password reset tokens (HS256 or RS256)
//     and verifies them against a key set keyed by kid, so tokens signed
//     before a key rotation keep verifying.
//   - Refresh tokens are opaque random values persisted through a
//     RefreshTokenStore. Refreshing extends the expiry of the stored value.
//
// Storage:
//   - Services depend on the UserStore and RefreshTokenStore interfaces. The
//     repository package implements them with Bun on SQLite or PostgreSQL.
//
// Activity sinks:
//   - ActivitySink receives audit events for logins, registrations, status
//     changes and password resets. Sinks run best-effort (errors are logged)
//     so a slow consumer never blocks authentication. The activitymap package
//     ships log and redis stream sinks.
package auth
