// Package donorauth implements the device-identity and verification-gated
// session layer of the endowment donor client: deciding whether the current
// device belongs to an anonymous visitor, a recognized returning donor, or an
// authenticated account holder, and driving the SMS/email verification
// hand-off that promotes a visitor into a durable device session.
//
// The package is the public surface. It exposes [Orchestrator], [Config], the
// session and donor value types, and the [SessionGateway] and
// [VerificationTransport] boundaries. Concrete transports live in the gateway
// subpackage, durable credential stores in store, fingerprinting in
// fingerprint.
//
// # Architecture boundaries
//
//   - The backend is authoritative for every security decision. The client
//     never treats a fingerprint match as proof of identity; it is a weak
//     correlation hint used to pre-fill login-versus-registration UX.
//   - Only the Orchestrator writes to the credential store. Every other
//     component either reads through the Orchestrator or does not touch
//     storage at all.
//   - Exactly one authentication lineage (classic bearer token or device
//     session) is active at a time. A persisted classic token always wins.
//
// # Concurrency contract
//
// Orchestrator methods are safe to call from multiple goroutines, but the
// flows themselves are single-slot: a second call to an operation whose
// previous call is still in flight fails with [ErrOperationInFlight] instead
// of racing it. This replaces the UI-level button disabling the original
// client relied on.
package donorauth
