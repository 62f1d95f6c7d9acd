// Package engine implements the imposter lifecycle and the per-request
// resolution pipeline.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                         Registry                           │
//	│        create / get / list / delete / replace-all          │
//	│                  (one imposter per port)                   │
//	└──────────────────────────┬─────────────────────────────────┘
//	                           │ owns
//	┌──────────────────────────▼─────────────────────────────────┐
//	│                         Imposter                           │
//	│   protocol adapter (pkg/protocol) bound to host:port       │
//	│   stub list + per-stub response cursors + request journal  │
//	└──────────────────────────┬─────────────────────────────────┘
//	                           │ each decoded request
//	┌──────────────────────────▼─────────────────────────────────┐
//	│                         resolver                           │
//	│   match stubs (internal/matching) → take cursor entry →    │
//	│   is: merge defaults │ proxy: forward + record │ inject    │
//	└────────────────────────────────────────────────────────────┘
//
// The Registry is an explicit object passed by reference; there is no
// package-level singleton. Construct one with NewRegistry, create
// imposters from imposter.Config values, and tear everything down with
// Close.
//
// Proxy recording follows the configured mode: proxyOnce captures the
// first origin response and serves it thereafter, proxyAlways keeps
// forwarding and accumulates every origin response in completion order,
// proxyTransparent never records. Recorded responses are folded into
// plain is responses when an imposter is exported in replayable form.
package engine
