// Package rate implements the dual sliding-window request limiter used to throttle
// public form submissions per caller identifier.
//
// # Window semantics
//
// Each [Window] counts the hits recorded in the half-open interval (now-Size, now].
// A request is admitted only when every window is below its limit, and only admitted
// requests are recorded. Windows are evaluated in the order given; when more than one
// is exhausted the first one is reported.
//
// # Stores
//
//   - [RedisStore]: sorted-set log per identifier, updated atomically by a Lua script.
//     Shared across instances.
//   - [MemoryStore]: process-local timestamp slices under a mutex, pruned by a periodic
//     sweep. Lost on restart.
//
// [Limiter] calls the primary store with a bounded timeout, falls back to the secondary
// store on error, and admits the request when neither can answer.
//
// # What this package must NOT do
//
//   - Know about HTTP, headers, or response shaping.
//   - Be imported outside the siteguard module.
package rate
