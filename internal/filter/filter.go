// Package filter smooths raw ADC readings with a fixed-window rolling average.
package filter

// Filter converts raw ADC counts to volts and keeps a circular buffer of the
// last N converted samples. Owned by the polling loop; not safe for
// concurrent use.
type Filter struct {
	vref   float64
	adcMax int
	buf    []float64
	idx    int
}

// New creates a filter with the given window size, ADC full-scale count and
// reference voltage. The buffer starts zeroed, so the first window-1 results
// are biased toward zero while it fills. That warm-up transient is part of
// the contract: at startup the output ramps from 0 up to the true level.
func New(window, adcMax int, vref float64) *Filter {
	return &Filter{
		vref:   vref,
		adcMax: adcMax,
		buf:    make([]float64, window),
	}
}

// Sample converts one raw reading to volts, stores it (overwriting the oldest
// slot) and returns the mean over the whole window.
func (f *Filter) Sample(raw int) float64 {
	f.buf[f.idx] = float64(raw) * f.vref / float64(f.adcMax)
	f.idx = (f.idx + 1) % len(f.buf)

	var sum float64
	for _, v := range f.buf {
		sum += v
	}
	return sum / float64(len(f.buf))
}

// Window returns the configured window size.
func (f *Filter) Window() int {
	return len(f.buf)
}
