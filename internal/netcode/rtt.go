// Package netcode implements client-side prediction and server
// reconciliation: the per-tick algorithm that keeps a locally predicted
// simulation in step with the authoritative event stream.
package netcode

import "time"

// RTTEstimator tracks the time since the last authoritative receipt and the
// most recent round-trip sample. Durations are integer nanoseconds, so sums
// of a fixed dt are exact.
type RTTEstimator struct {
	elapsed time.Duration
	last    time.Duration
	samples int
	sum     time.Duration
	min     time.Duration
	max     time.Duration
}

// Advance accumulates dt into the time since the last receipt.
func (r *RTTEstimator) Advance(dt time.Duration) {
	r.elapsed += dt
}

// Receive records an authoritative receipt: the accumulated time becomes the
// RTT sample and the timer restarts at zero. It returns the sample.
func (r *RTTEstimator) Receive() time.Duration {
	sample := r.elapsed
	r.last = sample
	r.elapsed = 0

	r.samples++
	r.sum += sample
	if r.samples == 1 || sample < r.min {
		r.min = sample
	}
	if sample > r.max {
		r.max = sample
	}
	return sample
}

// Reset restarts the timer without recording a sample.
func (r *RTTEstimator) Reset() {
	r.elapsed = 0
}

// Elapsed returns the time since the last receipt.
func (r *RTTEstimator) Elapsed() time.Duration {
	return r.elapsed
}

// RTT returns the last sample, zero before any receipt.
func (r *RTTEstimator) RTT() time.Duration {
	return r.last
}

// HasSample reports whether at least one usable RTT sample exists.
func (r *RTTEstimator) HasSample() bool {
	return r.samples > 0 && r.last > 0
}

// HalfCrossed reports whether advancing by dt carries the elapsed time across
// RTT/2 on this tick. Without a usable sample it reports true, so held input
// is applied immediately instead of never.
func (r *RTTEstimator) HalfCrossed(dt time.Duration) bool {
	if !r.HasSample() {
		return true
	}
	half := r.last / 2
	return r.elapsed < half && r.elapsed+dt >= half
}

// Stats summarizes all samples seen.
type Stats struct {
	Samples int
	Last    time.Duration
	Mean    time.Duration
	Min     time.Duration
	Max     time.Duration
}

// Stats returns a summary of the samples seen so far.
func (r *RTTEstimator) Stats() Stats {
	s := Stats{Samples: r.samples, Last: r.last, Min: r.min, Max: r.max}
	if r.samples > 0 {
		s.Mean = r.sum / time.Duration(r.samples)
	}
	return s
}
