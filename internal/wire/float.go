// Package wire holds JSON encodings shared by the dispatch, server and
// client layers.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"amari/internal/engineerr"
)

const (
	posInf = "Infinity"
	negInf = "-Infinity"
	nan    = "NaN"
)

// Float is a float64 whose non-finite values travel as the strings
// "Infinity", "-Infinity" and "NaN".
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"` + posInf + `"`), nil
	case math.IsInf(v, -1):
		return []byte(`"` + negInf + `"`), nil
	case math.IsNaN(v):
		return []byte(`"` + nan + `"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return engineerr.Shapef("null is not a number")
	}
	v, err := parseFloat(data)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func parseFloat(data []byte) (float64, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, engineerr.Shapef("invalid number %s", data)
		}
		switch s {
		case posInf, "inf", "+Infinity":
			return math.Inf(1), nil
		case negInf, "-inf":
			return math.Inf(-1), nil
		case nan:
			return math.NaN(), nil
		}
		return 0, engineerr.Shapef("invalid number string %q", s)
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, engineerr.Shapef("invalid number %s", data)
	}
	return v, nil
}

// Entry is a tropical matrix entry: null means "no entry", kept distinct
// from an explicit "Infinity".
type Entry struct {
	Value   float64
	Missing bool
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Missing {
		return []byte("null"), nil
	}
	return Float(e.Value).MarshalJSON()
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = Entry{Missing: true}
		return nil
	}
	v, err := parseFloat(data)
	if err != nil {
		return err
	}
	*e = Entry{Value: v}
	return nil
}

// Or returns the entry value, or missing when the entry is absent.
func (e Entry) Or(missing float64) float64 {
	if e.Missing {
		return missing
	}
	return e.Value
}

func Floats(in []float64) []Float {
	if in == nil {
		return nil
	}
	out := make([]Float, len(in))
	for i, v := range in {
		out[i] = Float(v)
	}
	return out
}

func Float64s(in []Float) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func Matrix(in [][]float64) [][]Float {
	out := make([][]Float, len(in))
	for i, row := range in {
		out[i] = Floats(row)
	}
	return out
}

// Entries resolves a matrix of entries, replacing missing ones.
func Entries(in [][]Entry, missing float64) [][]float64 {
	out := make([][]float64, len(in))
	for i, row := range in {
		out[i] = make([]float64, len(row))
		for j, e := range row {
			out[i][j] = e.Or(missing)
		}
	}
	return out
}

func (f Float) String() string {
	return fmt.Sprintf("%g", float64(f))
}
