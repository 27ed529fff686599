// Package host is the uniform function surface controller scripts and remote
// clients use to talk to any supported DAW.
package host

import (
	"strings"

	"github.com/Conceptual-Machines/dawscript-go/listener"
)

// Track, Plugin and Parameter are opaque references to host-native objects.
// They are owned by the host and only valid within the session that
// returned them.
type (
	Track     any
	Plugin    any
	Parameter any
)

// ListenerID identifies a listener registration so it can be removed later.
type ListenerID = listener.ID

// TrackType classifies tracks by their input.
type TrackType int

const (
	TrackAudio TrackType = iota
	TrackMIDI
	TrackOther
)

func (t TrackType) String() string {
	switch t {
	case TrackAudio:
		return "audio"
	case TrackMIDI:
		return "midi"
	default:
		return "other"
	}
}

// Property names an observable value of a track, plugin or parameter.
type Property string

const (
	TrackMute      Property = "track_mute"
	TrackVolume    Property = "track_volume"
	TrackPan       Property = "track_pan"
	PluginEnabled  Property = "plugin_enabled"
	ParameterValue Property = "parameter_value"
)

// Properties lists every observable property.
var Properties = []Property{TrackMute, TrackVolume, TrackPan, PluginEnabled, ParameterValue}

var propertyAliases = map[string]Property{
	"mute":    TrackMute,
	"volume":  TrackVolume,
	"pan":     TrackPan,
	"enabled": PluginEnabled,
	"value":   ParameterValue,
}

// ParseProperty accepts a full property name or its short alias.
func ParseProperty(name string) (Property, bool) {
	name = strings.ToLower(name)
	for _, p := range Properties {
		if string(p) == name {
			return p, true
		}
	}
	p, ok := propertyAliases[name]
	return p, ok
}

// Config tells the adapter which MIDI inputs to route to the controller. It
// is read once when the script starts.
type Config struct {
	// MIDIInputs lists port name fragments, matched case-insensitively.
	// Nil means every input.
	MIDIInputs []string
}

// AllMIDIInputs is the Config that accepts every MIDI input.
var AllMIDIInputs = Config{}

// AcceptsInput reports whether the named port should be routed.
func (c Config) AcceptsInput(port string) bool {
	if c.MIDIInputs == nil {
		return true
	}
	port = strings.ToLower(port)
	for _, in := range c.MIDIInputs {
		if strings.Contains(port, strings.ToLower(in)) {
			return true
		}
	}
	return false
}

// State is the lifecycle of a host adapter.
type State int

const (
	StateUnprobed State = iota
	StateCompatible
	StateIncompatible
	StateActive
	StateTornDown
)

func (s State) String() string {
	return [...]string{"unprobed", "compatible", "incompatible", "active", "torn down"}[s]
}
