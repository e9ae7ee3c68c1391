// Package cookie decides cookie names and attribute sets from a declared security
// level and the runtime environment.
//
// # Levels
//
//   - [LevelHighest]: HttpOnly, always Secure, SameSite=Strict, Path=/, never a Domain.
//     Name carries the "__Host-" prefix.
//   - [LevelHigh]: HttpOnly, Secure in production or when forced, SameSite=Strict,
//     Domain allowed. Name carries the "__Secure-" prefix.
//   - [LevelMedium]: same attributes as LevelHigh, for non-auth state.
//   - [LevelBasic]: HttpOnly, Secure only in production, SameSite=Lax.
//
// Prefixes are only applied in production or when ForceSecure is set, so local
// development cookies keep their plain names.
//
// Every cookie built by [Policy.Cookie] is checked with [Validate] before it is
// returned; a prefix rule violation is a configuration error and is never silently
// downgraded.
package cookie
