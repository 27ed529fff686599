package volume

import "math"

var negInf = math.Inf(-1)

// Live is the mixer volume curve of Ableton Live, measured on the track fader.
var Live = MustTable([]Point{
	{negInf, 0.000},
	{-60, 0.035},
	{-54, 0.070},
	{-48, 0.103},
	{-42, 0.142},
	{-36, 0.186},
	{-30, 0.239},
	{-24, 0.302},
	{-18, 0.401},
	{-12, 0.551},
	{-6, 0.700},
	{0, 0.850},
	{6, 1.000},
})

// Bitwig is the mixer volume curve of Bitwig Studio.
var Bitwig = MustTable([]Point{
	{negInf, 0.000},
	{-36, 0.200},
	{-24, 0.316},
	{-18, 0.398},
	{-12, 0.500},
	{-6, 0.630},
	{0, 0.793},
	{6, 1.000},
})

// Reaper is REAPER's amplitude volume; anything at or below -150 dB is silence.
var Reaper = Logarithmic{Floor: -150}
