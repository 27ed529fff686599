// Package reaper adapts REAPER's scripting API. REAPER has no change
// notifications, so every subscribed property is polled from a defer loop
// that has to re-arm itself on every pass.
package reaper

import (
	"sync"

	"github.com/Conceptual-Machines/dawscript-go/host"
)

// MediaTrack is REAPER's track pointer.
type MediaTrack uintptr

// API is the subset of the REAPER C API dawscript uses. The extension
// plugin hosting dawscript provides the implementation and calls Register
// before the loader runs.
type API interface {
	ShowConsoleMsg(msg string)

	// GetTrack returns false past the last track.
	GetTrack(index int) (MediaTrack, bool)
	GetTrackName(t MediaTrack) string
	// GetTrackRecordInput returns the I_RECINPUT value of t.
	GetTrackRecordInput(t MediaTrack) int
	GetTrackUIMute(t MediaTrack) bool
	SetTrackUIMute(t MediaTrack, mute bool)
	GetTrackUIVolPan(t MediaTrack) (volume, pan float64)
	SetTrackUIVolume(t MediaTrack, volume float64)
	SetTrackUIPan(t MediaTrack, pan float64)

	TrackFXGetCount(t MediaTrack) int
	// TrackFXGetByName returns -1 when no FX matches.
	TrackFXGetByName(t MediaTrack, name string) int
	TrackFXGetFXName(t MediaTrack, fx int) string
	TrackFXGetEnabled(t MediaTrack, fx int) bool
	TrackFXSetEnabled(t MediaTrack, fx int, enabled bool)
	TrackFXGetNumParams(t MediaTrack, fx int) int
	TrackFXGetParamName(t MediaTrack, fx, param int) string
	TrackFXGetParam(t MediaTrack, fx, param int) (value, min, max float64)
	TrackFXSetParam(t MediaTrack, fx, param int, value float64)

	GetProjectPath() string

	// MIDIGetRecentInputEvent returns the idx-th most recent input event.
	// seq is 0 when there is no such event.
	MIDIGetRecentInputEvent(idx int) (seq int, msg []byte, device int)
	GetMIDIInputName(device int) (string, bool)

	Defer(fn func())
	AtExit(fn func())
}

var (
	bindingMu sync.Mutex
	binding   API
)

// Register makes the REAPER API available to Probe and Run.
func Register(api API) {
	bindingMu.Lock()
	defer bindingMu.Unlock()
	binding = api
}

func registered() API {
	bindingMu.Lock()
	defer bindingMu.Unlock()
	return binding
}

// Probe reports whether dawscript is running inside REAPER.
func Probe() error {
	if registered() == nil {
		return host.ErrIncompatibleEnvironment
	}
	return nil
}
