// Package volume converts between decibels, the facade's public volume unit,
// and the normalized values host mixers expose.
package volume

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Curve is a bidirectional dB <-> host-native mapping. -Inf dB maps to the
// host's zero value and back exactly.
type Curve interface {
	ToDB(native float64) float64
	FromDB(db float64) float64
}

// Point is one calibration pair measured on a host fader.
type Point struct {
	DB     float64
	Native float64
}

// Table interpolates linearly between calibration points and clamps outside
// of them. The segment between -Inf and the first finite point is
// interpolated in linear amplitude, which keeps it invertible.
type Table struct {
	points []Point
}

// NewTable builds a table from points sorted by ascending native value. The
// first point must be (-Inf, 0).
func NewTable(points []Point) (*Table, error) {
	if len(points) < 2 {
		return nil, errors.New("volume table needs at least two points")
	}
	if !math.IsInf(points[0].DB, -1) || points[0].Native != 0 {
		return nil, errors.New("volume table must start at (-Inf dB, 0)")
	}
	for i := 1; i < len(points); i++ {
		if math.IsInf(points[i].DB, 0) || math.IsNaN(points[i].DB) {
			return nil, fmt.Errorf("point %d: dB must be finite", i)
		}
		if points[i].Native <= points[i-1].Native || (i > 1 && points[i].DB <= points[i-1].DB) {
			return nil, fmt.Errorf("point %d: values must be strictly ascending", i)
		}
	}
	return &Table{points: append([]Point(nil), points...)}, nil
}

// MustTable is NewTable for package-level tables.
func MustTable(points []Point) *Table {
	t, err := NewTable(points)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) ToDB(native float64) float64 {
	p := t.points
	last := p[len(p)-1]
	switch {
	case math.IsNaN(native) || native <= 0:
		return math.Inf(-1)
	case native >= last.Native:
		return last.DB
	case native < p[1].Native:
		return p[1].DB + amplitudeToDB(native/p[1].Native)
	}

	i := sort.Search(len(p)-2, func(k int) bool { return p[k+2].Native >= native }) + 2
	lo, hi := p[i-1], p[i]
	frac := (native - lo.Native) / (hi.Native - lo.Native)
	return lo.DB + frac*(hi.DB-lo.DB)
}

func (t *Table) FromDB(db float64) float64 {
	p := t.points
	last := p[len(p)-1]
	switch {
	case math.IsNaN(db) || math.IsInf(db, -1):
		return 0
	case db >= last.DB:
		return last.Native
	case db < p[1].DB:
		return p[1].Native * dbToAmplitude(db-p[1].DB)
	}

	i := sort.Search(len(p)-2, func(k int) bool { return p[k+2].DB >= db }) + 2
	lo, hi := p[i-1], p[i]
	frac := (db - lo.DB) / (hi.DB - lo.DB)
	return lo.Native + frac*(hi.Native-lo.Native)
}

// Step returns the largest dB distance between two adjacent finite points.
func (t *Table) Step() float64 {
	var step float64
	for i := 2; i < len(t.points); i++ {
		step = math.Max(step, t.points[i].DB-t.points[i-1].DB)
	}
	return step
}

// Logarithmic is the closed-form curve of hosts whose native volume is a
// linear amplitude factor.
type Logarithmic struct {
	// Floor is the dB value at or below which the host reports silence.
	Floor float64
}

const (
	twentyOverLn10 = 8.6858896380650365530225783783321
	ln10OverTwenty = 0.11512925464970228420089957273422
	minAmplitude   = 0.0000000298023223876953125
)

func (l Logarithmic) ToDB(native float64) float64 {
	if math.IsNaN(native) || native < minAmplitude {
		return math.Inf(-1)
	}
	db := twentyOverLn10 * math.Log(native)
	if db <= l.Floor {
		return math.Inf(-1)
	}
	return db
}

func (l Logarithmic) FromDB(db float64) float64 {
	if math.IsNaN(db) || math.IsInf(db, -1) || db <= l.Floor {
		return 0
	}
	return math.Exp(ln10OverTwenty * db)
}

func amplitudeToDB(a float64) float64 {
	return twentyOverLn10 * math.Log(a)
}

func dbToAmplitude(db float64) float64 {
	return math.Exp(ln10OverTwenty * db)
}
