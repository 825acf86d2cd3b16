// Package signal provides stateless conditioning stages over sampled streams.
//
// A Series holds one value per recorded instant. Missing samples are NaN so
// stages can be chained without pointer juggling; JSON encoding turns them
// back into null.
package signal

import (
	"bytes"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Series is a sequence of optional samples. NaN marks a missing sample.
type Series []float64

// Missing returns the sentinel used for a missing sample.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is a missing (or non-finite) sample.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// FromNullable converts decoded JSON (nil = null) into a Series.
func FromNullable(values []*float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = Missing()
			continue
		}
		out[i] = *v
	}
	return out
}

// FromFloats copies plain values into a Series.
func FromFloats(values ...float64) Series {
	out := make(Series, len(values))
	copy(out, values)
	return out
}

// Len returns the number of samples, missing ones included.
func (s Series) Len() int {
	return len(s)
}

// At returns the sample at i and whether it is present.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) || IsMissing(s[i]) {
		return 0, false
	}
	return s[i], true
}

// Valid returns the present samples in order.
func (s Series) Valid() []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// CountValid returns the number of present samples.
func (s Series) CountValid() int {
	n := 0
	for _, v := range s {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// Mean returns the mean of the present samples.
func (s Series) Mean() (float64, bool) {
	return Mean(s.Valid())
}

// Last returns the final sample and whether it is present.
func (s Series) Last() (float64, bool) {
	return s.At(len(s) - 1)
}

// Clone returns an independent copy.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Map applies fn to every present sample.
func (s Series) Map(fn func(float64) float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		if IsMissing(v) {
			out[i] = Missing()
			continue
		}
		out[i] = fn(v)
	}
	return out
}

// Nullable converts the series back to the pointer form used by JSON
// decoders and database/sql.
func (s Series) Nullable() []*float64 {
	out := make([]*float64, len(s))
	for i, v := range s {
		if IsMissing(v) {
			continue
		}
		val := v
		out[i] = &val
	}
	return out
}

// MarshalJSON encodes missing samples as null.
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteString(", ")
		}
		if IsMissing(v) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Mean returns the arithmetic mean of values, or false when empty.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

// Median returns the upper median (sorted[n/2]) of values, or false when
// empty. The input is not modified.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2], true
}

// Min returns the smallest present value.
func Min(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}
