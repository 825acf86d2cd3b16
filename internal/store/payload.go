package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"fitmetrics/internal/signal"
)

// ErrMalformed is wrapped by every parse failure of stored raw JSON.
var ErrMalformed = errors.New("malformed input")

// ActivityPayload is the typed view of activities_raw.raw_json. Absent and
// null fields are both nil.
type ActivityPayload struct {
	SportType          string
	Name               string
	Distance           *float64 // meters
	MovingTime         *float64 // seconds
	AverageSpeed       *float64 // m/s
	TotalElevationGain *float64 // meters
	AverageHeartRate   *float64 // bpm
}

// ParseActivityPayload decodes raw activity JSON. A field holding the wrong
// JSON type fails the whole payload.
func ParseActivityPayload(raw string) (*ActivityPayload, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	var p ActivityPayload
	sport, err := stringField(fields, "sport_type")
	if err != nil {
		return nil, err
	}
	if sport == "" {
		if sport, err = stringField(fields, "type"); err != nil {
			return nil, err
		}
	}
	p.SportType = sport

	if p.Name, err = stringField(fields, "name"); err != nil {
		return nil, err
	}

	numbers := []struct {
		key string
		dst **float64
	}{
		{"distance", &p.Distance},
		{"moving_time", &p.MovingTime},
		{"average_speed", &p.AverageSpeed},
		{"total_elevation_gain", &p.TotalElevationGain},
		{"average_heartrate", &p.AverageHeartRate},
	}
	for _, n := range numbers {
		if *n.dst, err = numberField(fields, n.key); err != nil {
			return nil, err
		}
	}

	return &p, nil
}

// ParseWeather decodes a weather snapshot. Current-conditions keys win over
// the activity-average keys.
func ParseWeather(raw string) (*Weather, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	var w Weather
	if w.TempC, err = firstNumber(fields, "temp_c", "avg_temp_c"); err != nil {
		return nil, err
	}
	if w.WindKmh, err = firstNumber(fields, "wind_kmh", "avg_wind_kmh"); err != nil {
		return nil, err
	}
	return &w, nil
}

// streamEnvelope is the stored shape of one stream.
type streamEnvelope struct {
	Data []*float64 `json:"data"`
}

// ParseStream decodes a numeric stream. Streams whose samples are not numbers
// (latlng pairs, for example) fail with ErrMalformed.
func ParseStream(raw string) (signal.Series, error) {
	var env streamEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: stream: %v", ErrMalformed, err)
	}
	return signal.FromNullable(env.Data), nil
}

func decodeObject(raw string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", ErrMalformed, key)
	}
	return s, nil
}

func numberField(fields map[string]json.RawMessage, key string) (*float64, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: field %q is not a number", ErrMalformed, key)
	}
	return &v, nil
}

func firstNumber(fields map[string]json.RawMessage, keys ...string) (*float64, error) {
	for _, k := range keys {
		v, err := numberField(fields, k)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return nil, nil
}
