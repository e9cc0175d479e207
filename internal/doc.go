// Package internal documents the TuPlan server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: event catalog rules and the access policy they enforce
// - storage: PostgreSQL repositories and schema migrations
// - auth, config, metrics, telemetry, sanitize: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
