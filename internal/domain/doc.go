// Package domain contains the core entities shared across the monitor:
// campaigns, their daily performance metrics, in-memory detection findings,
// and persisted analysis results (alerts).
//
// Types here carry no behavior beyond small derivations and have no
// dependencies on storage, transport, or service packages.
package domain
