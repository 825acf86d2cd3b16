package signal

import "math"

// madScale converts a median absolute deviation into a standard deviation
// estimate for normally distributed noise.
const madScale = 1.4826

// Clamp marks samples outside [min, max] as missing. Out-of-range readings
// are treated as noise, not corrected.
func Clamp(s Series, min, max float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		if IsMissing(v) || v < min || v > max {
			out[i] = Missing()
			continue
		}
		out[i] = v
	}
	return out
}

// DropInitialZeros marks the leading run of exact zeros as missing. Sensors
// often emit zero before they lock on; zeros after the first nonzero value
// pass through.
func DropInitialZeros(s Series) Series {
	out := make(Series, len(s))
	seen := false
	for i, v := range s {
		if IsMissing(v) {
			out[i] = Missing()
			continue
		}
		if !seen && v == 0 {
			out[i] = Missing()
			continue
		}
		seen = true
		out[i] = v
	}
	return out
}

// Hampel replaces outliers with the median of the centered window
// [i-window, i+window]. A sample is an outlier when it lies more than
// t0 scaled MADs from that median. Windows with zero spread are left alone.
func Hampel(s Series, window int, t0 float64) Series {
	out := s.Clone()
	n := len(s)
	buf := make([]float64, 0, 2*window+1)
	dev := make([]float64, 0, 2*window+1)

	for i := 0; i < n; i++ {
		if IsMissing(s[i]) {
			continue
		}
		lo := max(0, i-window)
		hi := min(n, i+window+1)

		buf = buf[:0]
		for _, v := range s[lo:hi] {
			if !IsMissing(v) {
				buf = append(buf, v)
			}
		}
		med, ok := Median(buf)
		if !ok {
			continue
		}

		dev = dev[:0]
		for _, v := range buf {
			dev = append(dev, math.Abs(v-med))
		}
		mad, _ := Median(dev)
		scale := madScale * mad
		if scale == 0 {
			continue
		}
		if math.Abs(s[i]-med) > t0*scale {
			out[i] = med
		}
	}
	return out
}

// EMA applies an exponential moving average over the present samples. A
// missing sample repeats the previous average instead of resetting it.
func EMA(s Series, alpha float64) Series {
	out := make(Series, len(s))
	prev := Missing()
	for i, v := range s {
		if IsMissing(v) {
			out[i] = prev
			continue
		}
		if IsMissing(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// RollingMean averages the present samples in a centered window of the given
// width. When a window holds no samples the original value is kept.
func RollingMean(s Series, window int) Series {
	if window <= 1 {
		return s.Clone()
	}
	n := len(s)
	out := make(Series, n)
	half := window / 2
	for i := 0; i < n; i++ {
		lo := max(0, i-half)
		hi := min(n, i+half+1)
		sum := 0.0
		count := 0
		for _, v := range s[lo:hi] {
			if IsMissing(v) {
				continue
			}
			sum += v
			count++
		}
		if count == 0 {
			out[i] = s[i]
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}

// ForwardFill carries the last present value into following gaps. Leading
// gaps stay missing.
func ForwardFill(s Series) Series {
	out := make(Series, len(s))
	prev := Missing()
	for i, v := range s {
		if IsMissing(v) {
			out[i] = prev
			continue
		}
		prev = v
		out[i] = v
	}
	return out
}
