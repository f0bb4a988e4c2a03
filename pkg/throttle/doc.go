// Package throttle paces continuous-gesture emission.
//
// A drawing gesture can produce input events far faster than the server is
// willing to accept them. A Limiter admits at most one event per interval;
// callers render every event locally and only send the admitted ones.
package throttle
