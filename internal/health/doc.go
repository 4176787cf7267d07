// Package health computes point-in-time process health and renders it in
// one of four response shapes selected per request:
//
//   - ModeSimple (?simple or ?lb): {status, timestamp, version} for load balancers
//   - ModeReady (?ready): dependency readiness {status, checks, timestamp}
//   - ModeLive (?live): {status:"alive", timestamp, uptime}, always 200
//   - ModeDetailed (no flag): the full Snapshot, pretty-printed
//
// A Reporter holds only immutable configuration; every call samples live
// process and host state, so it is safe for concurrent use. Failures never
// surface as errors: a check that cannot be evaluated is false, and the HTTP
// status follows from the combined result.
package health
