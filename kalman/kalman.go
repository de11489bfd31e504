// Package kalman provides a 1-dimensional Kalman filter for load cell
// noise reduction. It smooths better than a moving average while staying
// responsive to real weight changes.
//
// State equation:  x_k = x_{k-1} + w_k  (constant model)
// Measurement:     z_k = x_k + v_k
package kalman

import "fmt"

// Filter is a scalar constant-model Kalman filter. It is not safe for
// concurrent use; wrap it if multiple goroutines feed the same channel.
type Filter struct {
	q float64 // process noise
	r float64 // measurement noise

	x float64 // state estimate
	p float64 // estimation error covariance
	k float64 // last Kalman gain

	disabled bool
}

// NewFilter returns a filter with the given noise parameters. Smaller
// processNoise gives smoother output with slower response; larger
// measurementNoise gives more filtering.
func NewFilter(processNoise, measurementNoise float64) *Filter {
	return &Filter{q: processNoise, r: measurementNoise, p: 1}
}

// Update feeds one raw measurement and returns the filtered value. A
// disabled filter passes measurements through unchanged.
func (f *Filter) Update(measurement float64) float64 {
	if f.disabled {
		return measurement
	}
	pPred := f.p + f.q
	f.k = pPred / (pPred + f.r)
	f.x = f.x + f.k*(measurement-f.x)
	f.p = (1 - f.k) * pPred
	return f.x
}

// Reset re-seeds the estimate and error covariance.
func (f *Filter) Reset(initial float64) {
	f.x = initial
	f.p = 1
	f.k = 0
}

// SetEnabled toggles filtering; when disabled, Update is the identity.
func (f *Filter) SetEnabled(enabled bool) { f.disabled = !enabled }

// Enabled reports whether filtering is active.
func (f *Filter) Enabled() bool { return !f.disabled }

// State returns (estimate, error covariance, Kalman gain).
func (f *Filter) State() (float64, float64, float64) { return f.x, f.p, f.k }

// SetParams updates the noise parameters at runtime.
func (f *Filter) SetParams(processNoise, measurementNoise float64) {
	f.q = processNoise
	f.r = measurementNoise
}

// Bank filters every load cell channel independently.
type Bank struct {
	filters []*Filter
}

// NewBank returns n independent filters sharing the same noise parameters.
func NewBank(n int, processNoise, measurementNoise float64) *Bank {
	filters := make([]*Filter, n)
	for i := range filters {
		filters[i] = NewFilter(processNoise, measurementNoise)
	}
	return &Bank{filters: filters}
}

// Update filters one measurement per channel and returns the filtered
// values. len(measurements) must equal the bank size.
func (b *Bank) Update(measurements []float64) ([]float64, error) {
	if len(measurements) != len(b.filters) {
		return nil, fmt.Errorf("kalman: expected %d measurements, got %d", len(b.filters), len(measurements))
	}
	out := make([]float64, len(measurements))
	for i, m := range measurements {
		out[i] = b.filters[i].Update(m)
	}
	return out, nil
}

// Reset re-seeds every channel filter to zero.
func (b *Bank) Reset() {
	for _, f := range b.filters {
		f.Reset(0)
	}
}

// Channel returns the filter for one channel (0-based).
func (b *Bank) Channel(i int) *Filter { return b.filters[i] }

// Size returns the number of channels in the bank.
func (b *Bank) Size() int { return len(b.filters) }
