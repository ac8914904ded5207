// Package units implements the unit-tagged scalar values used throughout
// Flighthook's shot and configuration data: a numeric value paired with a
// unit suffix, rendered at the edge as a single string such as "1.5in" or
// "67.2mps".
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// DistanceUnit is one of the recognized distance suffixes.
type DistanceUnit string

const (
	Yards       DistanceUnit = "yd"
	Feet        DistanceUnit = "ft"
	Inches      DistanceUnit = "in"
	Meters      DistanceUnit = "m"
	Centimeters DistanceUnit = "cm"
)

// VelocityUnit is one of the recognized velocity suffixes.
type VelocityUnit string

const (
	MilesPerHour  VelocityUnit = "mph"
	MetersPerSec  VelocityUnit = "mps"
	KphUnit       VelocityUnit = "kph"
	FeetPerSecond VelocityUnit = "fps"
)

// metersPerDistanceUnit is the canonical-unit (meters) conversion factor.
var metersPerDistanceUnit = map[DistanceUnit]float64{
	Yards:       0.9144,
	Feet:        0.3048,
	Inches:      0.0254,
	Meters:      1.0,
	Centimeters: 0.01,
}

// mpsPerVelocityUnit is the canonical-unit (meters/second) conversion factor.
var mpsPerVelocityUnit = map[VelocityUnit]float64{
	MilesPerHour:  0.44704,
	MetersPerSec:  1.0,
	KphUnit:       0.277778,
	FeetPerSecond: 0.3048,
}

// Distance is a value tagged with a distance unit.
type Distance struct {
	Value float64
	Unit  DistanceUnit
}

// Velocity is a value tagged with a velocity unit.
type Velocity struct {
	Value float64
	Unit  VelocityUnit
}

// Meters returns the canonical-unit (meters) representation.
func (d Distance) Meters() (float64, error) {
	factor, ok := metersPerDistanceUnit[d.Unit]
	if !ok {
		return 0, fmt.Errorf("units: unrecognized distance suffix %q", d.Unit)
	}
	return d.Value * factor, nil
}

// In converts to the given target unit.
func (d Distance) In(target DistanceUnit) (Distance, error) {
	meters, err := d.Meters()
	if err != nil {
		return Distance{}, err
	}
	factor, ok := metersPerDistanceUnit[target]
	if !ok {
		return Distance{}, fmt.Errorf("units: unrecognized distance suffix %q", target)
	}
	return Distance{Value: meters / factor, Unit: target}, nil
}

// String renders the canonical wire form, e.g. "1.5in".
func (d Distance) String() string {
	return formatNumeric(d.Value) + string(d.Unit)
}

// MetersPerSecond returns the canonical-unit (m/s) representation.
func (v Velocity) MetersPerSecond() (float64, error) {
	factor, ok := mpsPerVelocityUnit[v.Unit]
	if !ok {
		return 0, fmt.Errorf("units: unrecognized velocity suffix %q", v.Unit)
	}
	return v.Value * factor, nil
}

// In converts to the given target unit.
func (v Velocity) In(target VelocityUnit) (Velocity, error) {
	mps, err := v.MetersPerSecond()
	if err != nil {
		return Velocity{}, err
	}
	factor, ok := mpsPerVelocityUnit[target]
	if !ok {
		return Velocity{}, fmt.Errorf("units: unrecognized velocity suffix %q", target)
	}
	return Velocity{Value: mps / factor, Unit: target}, nil
}

// String renders the canonical wire form, e.g. "67.2mps".
func (v Velocity) String() string {
	return formatNumeric(v.Value) + string(v.Unit)
}

// Longer/more-specific suffixes must be tried before shorter ones that are
// also string suffixes of them (e.g. "cm" ends in "m").
var distanceSuffixesByLength = []DistanceUnit{Centimeters, Yards, Feet, Inches, Meters}
var velocitySuffixesByLength = []VelocityUnit{MilesPerHour, MetersPerSec, KphUnit, FeetPerSecond}

// ParseDistance parses a string of the form "<number><suffix>" where suffix
// is one of yd, ft, in, m, cm. Parsing is exact: any other suffix is an error.
func ParseDistance(s string) (Distance, error) {
	for _, suffix := range distanceSuffixesByLength {
		if rest, ok := trimSuffixExact(s, string(suffix)); ok {
			value, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return Distance{}, fmt.Errorf("units: invalid distance value in %q: %w", s, err)
			}
			return Distance{Value: value, Unit: suffix}, nil
		}
	}
	return Distance{}, fmt.Errorf("units: unrecognized distance suffix in %q", s)
}

// ParseVelocity parses a string of the form "<number><suffix>" where suffix
// is one of mph, mps, kph, fps. Parsing is exact: any other suffix is an error.
func ParseVelocity(s string) (Velocity, error) {
	for _, suffix := range velocitySuffixesByLength {
		if rest, ok := trimSuffixExact(s, string(suffix)); ok {
			value, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return Velocity{}, fmt.Errorf("units: invalid velocity value in %q: %w", s, err)
			}
			return Velocity{Value: value, Unit: suffix}, nil
		}
	}
	return Velocity{}, fmt.Errorf("units: unrecognized velocity suffix in %q", s)
}

// trimSuffixExact requires the suffix to match exactly (not a prefix of a
// longer, unrecognized suffix) and the remainder to be non-empty.
func trimSuffixExact(s, suffix string) (string, bool) {
	if !strings.HasSuffix(s, suffix) {
		return "", false
	}
	rest := strings.TrimSuffix(s, suffix)
	if rest == "" {
		return "", false
	}
	return rest, true
}

func formatNumeric(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// MarshalText renders Distance as its tagged string form, used by
// github.com/BurntSushi/toml for TOML encoding.
func (d Distance) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses Distance from its tagged string form, used by
// github.com/BurntSushi/toml for TOML decoding.
func (d *Distance) UnmarshalText(text []byte) error {
	parsed, err := ParseDistance(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON renders Distance as its tagged string form.
func (d Distance) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON parses Distance from its tagged string form.
func (d *Distance) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := ParseDistance(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText renders Velocity as its tagged string form, used by
// github.com/BurntSushi/toml for TOML encoding.
func (v Velocity) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses Velocity from its tagged string form, used by
// github.com/BurntSushi/toml for TOML decoding.
func (v *Velocity) UnmarshalText(text []byte) error {
	parsed, err := ParseVelocity(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON renders Velocity as its tagged string form.
func (v Velocity) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(v.String())), nil
}

// UnmarshalJSON parses Velocity from its tagged string form.
func (v *Velocity) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := ParseVelocity(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
