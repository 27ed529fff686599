package volume

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_RoundTripWithinOneStep(t *testing.T) {
	tables := map[string]*Table{"live": Live, "bitwig": Bitwig}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			for db := -70.0; db <= 6.0; db += 0.25 {
				got := table.ToDB(table.FromDB(db))
				assert.InDelta(t, db, got, 0.1, "round trip of %.2f dB", db)
			}
		})
	}
}

func TestTable_NegativeInfinityRoundTripsExactly(t *testing.T) {
	for _, curve := range []Curve{Live, Bitwig, Reaper} {
		assert.Equal(t, 0.0, curve.FromDB(math.Inf(-1)))
		assert.True(t, math.IsInf(curve.ToDB(0), -1))
		assert.True(t, math.IsInf(curve.ToDB(curve.FromDB(math.Inf(-1))), -1))
	}
}

func TestTable_CalibrationPointsAreExact(t *testing.T) {
	assert.InDelta(t, 0.850, Live.FromDB(0), 1e-12)
	assert.InDelta(t, 0.0, Live.ToDB(0.850), 1e-12)
	assert.InDelta(t, -60.0, Live.ToDB(0.035), 1e-12)
	assert.InDelta(t, 0.793, Bitwig.FromDB(0), 1e-12)
}

func TestTable_ClampsOutsideDomain(t *testing.T) {
	assert.Equal(t, 1.0, Live.FromDB(12))
	assert.Equal(t, 6.0, Live.ToDB(1.5))
	assert.True(t, math.IsInf(Live.ToDB(-0.2), -1))
}

func TestTable_InterpolatesBetweenPoints(t *testing.T) {
	// halfway between -12 dB (0.551) and -6 dB (0.700)
	assert.InDelta(t, -9.0, Live.ToDB(0.6255), 1e-9)
	assert.InDelta(t, 0.6255, Live.FromDB(-9), 1e-9)
}

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"too short", []Point{{math.Inf(-1), 0}}},
		{"finite start", []Point{{-60, 0}, {0, 1}}},
		{"descending", []Point{{math.Inf(-1), 0}, {0, 0.8}, {-6, 0.9}}},
		{"infinite inner point", []Point{{math.Inf(-1), 0}, {math.Inf(1), 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.points)
			require.Error(t, err)
		})
	}
}

func TestTable_Step(t *testing.T) {
	assert.Equal(t, 6.0, Live.Step())
	assert.Equal(t, 12.0, Bitwig.Step())
}

func TestLogarithmic(t *testing.T) {
	assert.InDelta(t, 1.0, Reaper.FromDB(0), 1e-12)
	assert.InDelta(t, -6.0206, Reaper.ToDB(0.5), 1e-4)
	assert.InDelta(t, -20.0, Reaper.ToDB(Reaper.FromDB(-20)), 1e-9)
	assert.True(t, math.IsInf(Reaper.ToDB(1e-9), -1))
	assert.Equal(t, 0.0, Reaper.FromDB(-200))
}
