package graph

import "math"

// LowPass is a second order low-pass biquad (RBJ cookbook coefficients).
type LowPass struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// NewLowPass designs a low-pass filter. The cutoff is kept below Nyquist.
func NewLowPass(cutoff, q float64, sampleRate int) *LowPass {
	nyquist := float64(sampleRate) / 2
	cutoff = math.Max(10, math.Min(cutoff, nyquist*0.95))
	if q <= 0 {
		q = 1
	}
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosw, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	a0 := 1 + alpha
	return &LowPass{
		b0: (1 - cosw) / 2 / a0,
		b1: (1 - cosw) / a0,
		b2: (1 - cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *LowPass) Process(x float32) float32 {
	in := float64(x)
	y := f.b0*in + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, in
	f.y2, f.y1 = f.y1, y
	return float32(y)
}
