// Package permission holds the static role -> permission map used to derive the
// permission set of a session at issuance time.
//
// # Model
//
// A [Registry] lists every permission tag the deployment knows. A [RoleManager]
// binds each role to an ordered subset of those tags and may flag one or more roles
// as superusers. Both are built once at startup and frozen.
//
// Superuser handling is the caller's concern: [RoleManager.IsSuperuser] reports the
// flag, and [Satisfies] applies it so a superuser passes every role and permission
// check, including tags that were never granted to it explicitly.
//
// # What this package must NOT do
//
//   - Access cookies, tokens, Redis, or the network.
//   - Import siteguard (no upward imports).
//   - Mutate role bindings after Freeze.
package permission
