// Package rate implements the brute-force login lockout: Redis-backed
// per-IP failure counters with TTL and a lockout flag.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key layout:
//   - <prefix>:login:fail:<ip> — failure counter
//   - <prefix>:login:lock:<ip> — lockout flag, set when the counter reaches
//     the threshold; its remaining TTL is the retry-after hint
//
// Both keys self-expire after the window; there is no cleanup job.
package rate
