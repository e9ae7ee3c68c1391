// Package middleware adapts siteguard.Engine to net/http.
//
// # Pipeline
//
// [Pipeline] looks up the [Policy] of each request in a [PolicyTable] and runs the
// checks in a fixed order: CSRF, then rate limit, then authorization. A later stage
// never runs when an earlier one rejects.
//
// # Route policy precedence
//
// Rules are matched in three tiers: exact paths first, then segment patterns
// ("/api/jobs/{id}") in declaration order, then prefixes with the longest prefix
// winning. The first tier with a match decides.
//
// # Rejections
//
// Rejected requests get a JSON body {"error", "category"} with a generic message.
// The specific reason goes to the engine logger and audit sink only.
//
// # What this package must NOT do
//
//   - Parse or sign tokens (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond what Engine.Authorize returns.
package middleware
