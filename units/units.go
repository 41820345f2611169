package units

import (
	"errors"
	"strings"
)

// Unit provides common values for units used to describe a signal's
// physical value.
type Unit string

// The known units.
const (
	// Velocity
	MPH Unit = "mph"
	KMH Unit = "km/h"
	MPS Unit = "m/s"

	// Distance
	Miles      Unit = "miles"
	Kilometers Unit = "km"
	Meters     Unit = "m"

	// Rotational Speed
	RPM Unit = "rpm"
	RPS Unit = "rev/s"

	// Angle
	Degrees Unit = "deg"
	Radians Unit = "rad"

	// Temperature
	F Unit = "F"
	C Unit = "C"
	K Unit = "K"

	// Pressure
	PSI  Unit = "psi"
	BAR  Unit = "bar"
	KPA  Unit = "kPa"
	HPA  Unit = "hPa"
	MPA  Unit = "MPa"
	InHG Unit = "inHg"
	MmHG Unit = "mmHg"

	// Electricity
	Volts      Unit = "V"
	Millivolts Unit = "mV"
	Amps       Unit = "A"
	Milliamps  Unit = "mA"
	Ohms       Unit = "ohm"
	Watts      Unit = "W"
	Kilowatts  Unit = "kW"

	// Time
	Seconds Unit = "s"
	MS      Unit = "ms"
	US      Unit = "µs"

	// Misc
	Percent Unit = "%"
	Nm      Unit = "Nm"
	Count   Unit = "count"
)

var aliases = map[string]Unit{
	"kph":     KMH,
	"kmh":     KMH,
	"km/hr":   KMH,
	"m/sec":   MPS,
	"1/min":   RPM,
	"u/min":   RPM,
	"rev/min": RPM,
	"rps":     RPS,
	"°":       Degrees,
	"degree":  Degrees,
	"degrees": Degrees,
	"°c":      C,
	"degc":    C,
	"deg c":   C,
	"°f":      F,
	"degf":    F,
	"deg f":   F,
	"kelvin":  K,
	"volt":    Volts,
	"volts":   Volts,
	"amp":     Amps,
	"amps":    Amps,
	"sec":     Seconds,
	"msec":    MS,
	"us":      US,
	"usec":    US,
}

// Parse maps a free-form DBC unit string onto a known Unit. ok is false when
// the string isn't recognised.
func Parse(s string) (u Unit, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if _, ok := UnitConversions[Unit(s)]; ok {
		return Unit(s), true
	}
	for _, k := range known {
		if strings.EqualFold(s, string(k)) {
			return k, true
		}
	}
	u, ok = aliases[strings.ToLower(s)]
	return u, ok
}

var known = []Unit{
	MPH, KMH, MPS, Miles, Kilometers, Meters, RPM, RPS, Degrees, Radians,
	F, C, K, PSI, BAR, KPA, HPA, MPA, InHG, MmHG, Volts, Millivolts, Amps,
	Milliamps, Ohms, Watts, Kilowatts, Seconds, MS, US, Percent, Nm, Count,
}

// ErrorInvalidConversion is returned when an invalid unit conversion attempt is made.
var ErrorInvalidConversion = errors.New("units are invalid for conversion")

func Convert(value float64, from, to Unit) (float64, error) {
	if from == to {
		return value, nil
	}

	cvs := UnitConversions[from]
	if cvs == nil {
		return 0, ErrorInvalidConversion
	}

	cv := cvs[to]
	if cv == nil {
		return 0, ErrorInvalidConversion
	}

	return cv(value), nil
}

// UnitConversions provides conversion functions for the package-defined Units.
var UnitConversions = map[Unit]map[Unit]func(v float64) float64{
	MPH: {
		KMH: func(v float64) float64 { return v * 1.609344 },
		MPS: func(v float64) float64 { return v * 0.44704 },
	},
	KMH: {
		MPH: func(v float64) float64 { return v / 1.609344 },
		MPS: func(v float64) float64 { return v / 3.6 },
	},
	MPS: {
		KMH: func(v float64) float64 { return v * 3.6 },
		MPH: func(v float64) float64 { return v / 0.44704 },
	},
	Miles: {
		Kilometers: func(v float64) float64 { return v * 1.609344 },
	},
	Kilometers: {
		Miles:  func(v float64) float64 { return v / 1.609344 },
		Meters: func(v float64) float64 { return v * 1000 },
	},
	Meters: {
		Kilometers: func(v float64) float64 { return v / 1000 },
	},
	RPM: {
		RPS: func(v float64) float64 { return v / 60 },
	},
	RPS: {
		RPM: func(v float64) float64 { return v * 60 },
	},
	Degrees: {
		Radians: func(v float64) float64 { return v * 0.017453292519943295 },
	},
	Radians: {
		Degrees: func(v float64) float64 { return v * 57.29577951308232 },
	},
	F: {
		C: func(v float64) float64 { return (v - 32) / 9 * 5 },
		K: func(v float64) float64 { return (v-32)/9*5 + 273.15 },
	},
	C: {
		F: func(v float64) float64 { return (v / 5 * 9) + 32 },
		K: func(v float64) float64 { return v + 273.15 },
	},
	K: {
		C: func(v float64) float64 { return v - 273.15 },
		F: func(v float64) float64 { return (v-273.15)/5*9 + 32 },
	},
	KPA: {
		PSI:  func(v float64) float64 { return v * 0.1450377 },
		BAR:  func(v float64) float64 { return v / 100 },
		HPA:  func(v float64) float64 { return v * 10 },
		MPA:  func(v float64) float64 { return v / 1000 },
		InHG: func(v float64) float64 { return v * 0.2953 },
		MmHG: func(v float64) float64 { return v * 7.50062 },
	},
	PSI: {
		KPA:  func(v float64) float64 { return v * 6.894757 },
		BAR:  func(v float64) float64 { return v * 0.0689475729 },
		HPA:  func(v float64) float64 { return v * 68.94757 },
		InHG: func(v float64) float64 { return v * 2.03602 },
		MmHG: func(v float64) float64 { return v * 51.7149 },
	},
	BAR: {
		PSI:  func(v float64) float64 { return v * 14.5038 },
		KPA:  func(v float64) float64 { return v * 100 },
		HPA:  func(v float64) float64 { return v * 1000 },
		MPA:  func(v float64) float64 { return v / 10 },
		InHG: func(v float64) float64 { return v * 29.53 },
		MmHG: func(v float64) float64 { return v * 750.062 },
	},
	HPA: {
		PSI:  func(v float64) float64 { return v * 0.0145038 },
		BAR:  func(v float64) float64 { return v / 1000 },
		KPA:  func(v float64) float64 { return v / 10 },
		InHG: func(v float64) float64 { return v * 0.029529983071445 },
		MmHG: func(v float64) float64 { return v * 0.75006157584566 },
	},
	MPA: {
		KPA: func(v float64) float64 { return v * 1000 },
		BAR: func(v float64) float64 { return v * 10 },
	},
	InHG: {
		PSI:  func(v float64) float64 { return v * 0.491154 },
		BAR:  func(v float64) float64 { return v * 0.0338639 },
		KPA:  func(v float64) float64 { return v * 3.3863886666667 },
		HPA:  func(v float64) float64 { return v * 33.863886666667 },
		MmHG: func(v float64) float64 { return v * 25.4 },
	},
	MmHG: {
		PSI:  func(v float64) float64 { return v * 0.0193368 },
		BAR:  func(v float64) float64 { return v * 0.00133322 },
		KPA:  func(v float64) float64 { return v * 0.13332239 },
		HPA:  func(v float64) float64 { return v * 1.3332239 },
		InHG: func(v float64) float64 { return v * 0.0393701 },
	},
	Volts: {
		Millivolts: func(v float64) float64 { return v * 1000 },
	},
	Millivolts: {
		Volts: func(v float64) float64 { return v / 1000 },
	},
	Amps: {
		Milliamps: func(v float64) float64 { return v * 1000 },
	},
	Milliamps: {
		Amps: func(v float64) float64 { return v / 1000 },
	},
	Watts: {
		Kilowatts: func(v float64) float64 { return v / 1000 },
	},
	Kilowatts: {
		Watts: func(v float64) float64 { return v * 1000 },
	},
	Seconds: {
		MS: func(v float64) float64 { return v * 1000 },
		US: func(v float64) float64 { return v * 1e6 },
	},
	MS: {
		Seconds: func(v float64) float64 { return v / 1000 },
		US:      func(v float64) float64 { return v * 1000 },
	},
	US: {
		Seconds: func(v float64) float64 { return v / 1e6 },
		MS:      func(v float64) float64 { return v / 1000 },
	},
}
