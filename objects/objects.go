// Package objects wraps facade handles in small typed values so controller
// code can read as track.SetMute(true) instead of passing handles around.
// Every value is bound to the facade it came from and goes stale with it.
package objects

import "github.com/Conceptual-Machines/dawscript-go/host"

// Track is a track of the current project.
type Track struct {
	f *host.Facade
	h host.Track
}

// NewTrack wraps a handle returned by f.
func NewTrack(f *host.Facade, h host.Track) Track {
	return Track{f: f, h: h}
}

// Tracks returns every track of the project in host order.
func Tracks(f *host.Facade) ([]Track, error) {
	handles, err := f.Tracks()
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, len(handles))
	for i, h := range handles {
		tracks[i] = NewTrack(f, h)
	}
	return tracks, nil
}

// TrackByName looks a track up case-insensitively.
func TrackByName(f *host.Facade, name string) (Track, error) {
	h, err := f.TrackByName(name)
	if err != nil {
		return Track{}, err
	}
	return NewTrack(f, h), nil
}

func (t Track) Handle() host.Track { return t.h }

func (t Track) StableID() (string, error) { return t.f.StableID(t.h) }

func (t Track) Name() (string, error) { return t.f.TrackName(t.h) }

func (t Track) Type() (host.TrackType, error) { return t.f.TrackType(t.h) }

func (t Track) Mute() (bool, error) { return t.f.IsTrackMute(t.h) }

func (t Track) SetMute(mute bool) error { return t.f.SetTrackMute(t.h, mute) }

func (t Track) ToggleMute() error { return t.f.ToggleTrackMute(t.h) }

func (t Track) AddMuteListener(fn func(bool)) (host.ListenerID, error) {
	return t.f.AddTrackMuteListener(t.h, fn)
}

func (t Track) RemoveMuteListener(id host.ListenerID) error {
	return t.f.RemoveTrackMuteListener(t.h, id)
}

// Volume returns the fader level in dB.
func (t Track) Volume() (float64, error) { return t.f.TrackVolume(t.h) }

func (t Track) SetVolume(db float64) error { return t.f.SetTrackVolume(t.h, db) }

func (t Track) AddVolumeListener(fn func(float64)) (host.ListenerID, error) {
	return t.f.AddTrackVolumeListener(t.h, fn)
}

func (t Track) RemoveVolumeListener(id host.ListenerID) error {
	return t.f.RemoveTrackVolumeListener(t.h, id)
}

// Pan returns the pan position in [-1, 1].
func (t Track) Pan() (float64, error) { return t.f.TrackPan(t.h) }

func (t Track) SetPan(pan float64) error { return t.f.SetTrackPan(t.h, pan) }

func (t Track) AddPanListener(fn func(float64)) (host.ListenerID, error) {
	return t.f.AddTrackPanListener(t.h, fn)
}

func (t Track) RemovePanListener(id host.ListenerID) error {
	return t.f.RemoveTrackPanListener(t.h, id)
}

// Plugins returns the plugins on the track in chain order.
func (t Track) Plugins() ([]Plugin, error) {
	handles, err := t.f.TrackPlugins(t.h)
	if err != nil {
		return nil, err
	}
	plugins := make([]Plugin, len(handles))
	for i, h := range handles {
		plugins[i] = Plugin{f: t.f, h: h}
	}
	return plugins, nil
}

// Plugin looks a plugin on the track up case-insensitively.
func (t Track) Plugin(name string) (Plugin, error) {
	h, err := t.f.TrackPluginByName(t.h, name)
	if err != nil {
		return Plugin{}, err
	}
	return Plugin{f: t.f, h: h}, nil
}

// Plugin is a device or effect on a track.
type Plugin struct {
	f *host.Facade
	h host.Plugin
}

func (p Plugin) Handle() host.Plugin { return p.h }

func (p Plugin) Name() (string, error) { return p.f.PluginName(p.h) }

func (p Plugin) Enabled() (bool, error) { return p.f.IsPluginEnabled(p.h) }

func (p Plugin) SetEnabled(enabled bool) error { return p.f.SetPluginEnabled(p.h, enabled) }

func (p Plugin) ToggleEnabled() error { return p.f.TogglePluginEnabled(p.h) }

func (p Plugin) AddEnabledListener(fn func(bool)) (host.ListenerID, error) {
	return p.f.AddPluginEnabledListener(p.h, fn)
}

func (p Plugin) RemoveEnabledListener(id host.ListenerID) error {
	return p.f.RemovePluginEnabledListener(p.h, id)
}

func (p Plugin) Parameters() ([]Parameter, error) {
	handles, err := p.f.PluginParameters(p.h)
	if err != nil {
		return nil, err
	}
	params := make([]Parameter, len(handles))
	for i, h := range handles {
		params[i] = Parameter{f: p.f, h: h}
	}
	return params, nil
}

// Parameter looks a parameter of the plugin up case-insensitively.
func (p Plugin) Parameter(name string) (Parameter, error) {
	h, err := p.f.PluginParameterByName(p.h, name)
	if err != nil {
		return Parameter{}, err
	}
	return Parameter{f: p.f, h: h}, nil
}

// Parameter is one automatable value of a plugin.
type Parameter struct {
	f *host.Facade
	h host.Parameter
}

func (p Parameter) Handle() host.Parameter { return p.h }

func (p Parameter) Name() (string, error) { return p.f.ParameterName(p.h) }

func (p Parameter) Range() (lo, hi float64, err error) { return p.f.ParameterRange(p.h) }

func (p Parameter) Value() (float64, error) { return p.f.ParameterValue(p.h) }

func (p Parameter) SetValue(value float64) error { return p.f.SetParameterValue(p.h, value) }

func (p Parameter) AddValueListener(fn func(float64)) (host.ListenerID, error) {
	return p.f.AddParameterValueListener(p.h, fn)
}

func (p Parameter) RemoveValueListener(id host.ListenerID) error {
	return p.f.RemoveParameterValueListener(p.h, id)
}
