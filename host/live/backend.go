package live

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/dawscript-go/handle"
	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/volume"
)

// deviceOn is the parameter Live uses for a device's on/off switch.
const deviceOn = "Device On"

// Backend implements host.Backend on Live's object model.
type Backend struct {
	app      Application
	instance string
	midi     [][]byte
}

var (
	_ host.Backend        = (*Backend)(nil)
	_ host.Watcher        = (*Backend)(nil)
	_ host.MIDISource     = (*Backend)(nil)
	_ host.ProjectTracker = (*Backend)(nil)
)

func (b *Backend) Name() string { return "live" }

func (b *Backend) Log(message string) { b.app.LogMessage(message) }

func (b *Backend) Display(message string) { b.app.ShowMessage(message) }

// ProjectKey is constant for the lifetime of a control surface, since Live
// creates a new one for every project.
func (b *Backend) ProjectKey() (string, bool) {
	return b.instance, true
}

func (b *Backend) ReadMIDI() [][]byte {
	msgs := b.midi
	b.midi = nil
	return msgs
}

func (b *Backend) allTracks() []Track {
	song := b.app.Song()
	return append(song.Tracks(), song.ReturnTracks()...)
}

func (b *Backend) isReturn(t Track) bool {
	for _, r := range b.app.Song().ReturnTracks() {
		if r == t {
			return true
		}
	}
	return false
}

func (b *Backend) Identify(h any) (string, error) {
	switch v := h.(type) {
	case Track:
		return b.trackID(v)
	case Device:
		t, i, err := b.owner(v)
		if err != nil {
			return "", err
		}
		tid, err := b.trackID(t)
		if err != nil {
			return "", err
		}
		return handle.Path(tid, handle.Component(i, v.Name())), nil
	case DeviceParameter:
		for _, t := range b.allTracks() {
			for di, d := range t.Devices() {
				for pi, p := range d.Parameters() {
					if p != v {
						continue
					}
					tid, err := b.trackID(t)
					if err != nil {
						return "", err
					}
					return handle.Path(tid, handle.Component(di, d.Name()), handle.Component(pi, p.Name())), nil
				}
			}
		}
		return "", fmt.Errorf("parameter %q is not in the song", v.Name())
	}
	return "", fmt.Errorf("not a Live object: %T", h)
}

func (b *Backend) trackID(t Track) (string, error) {
	for i, x := range b.allTracks() {
		if x == t {
			return handle.Component(i, t.Name()), nil
		}
	}
	return "", fmt.Errorf("track %q is not in the song", t.Name())
}

func (b *Backend) owner(d Device) (Track, int, error) {
	for _, t := range b.allTracks() {
		for i, x := range t.Devices() {
			if x == d {
				return t, i, nil
			}
		}
	}
	return nil, 0, fmt.Errorf("device %q is not in the song", d.Name())
}

func (b *Backend) Tracks() ([]host.Track, error) {
	all := b.allTracks()
	tracks := make([]host.Track, len(all))
	for i, t := range all {
		tracks[i] = t
	}
	return tracks, nil
}

func (b *Backend) TrackName(t host.Track) (string, error) {
	track, err := asTrack(t)
	if err != nil {
		return "", err
	}
	return track.Name(), nil
}

func (b *Backend) TrackType(t host.Track) (host.TrackType, error) {
	track, err := asTrack(t)
	if err != nil {
		return host.TrackOther, err
	}
	switch {
	case track.IsFoldable() || b.isReturn(track):
		return host.TrackOther, nil
	case track.HasMIDIInput():
		return host.TrackMIDI, nil
	default:
		return host.TrackAudio, nil
	}
}

func (b *Backend) TrackPlugins(t host.Track) ([]host.Plugin, error) {
	track, err := asTrack(t)
	if err != nil {
		return nil, err
	}
	devices := track.Devices()
	plugins := make([]host.Plugin, len(devices))
	for i, d := range devices {
		plugins[i] = d
	}
	return plugins, nil
}

func (b *Backend) PluginName(p host.Plugin) (string, error) {
	d, err := asDevice(p)
	if err != nil {
		return "", err
	}
	return d.Name(), nil
}

// PluginParameters omits the on/off switch, which is exposed as the
// plugin's enabled state.
func (b *Backend) PluginParameters(p host.Plugin) ([]host.Parameter, error) {
	d, err := asDevice(p)
	if err != nil {
		return nil, err
	}
	var params []host.Parameter
	for _, param := range d.Parameters() {
		if param.Name() != deviceOn {
			params = append(params, param)
		}
	}
	return params, nil
}

func (b *Backend) ParameterName(p host.Parameter) (string, error) {
	param, err := asParameter(p)
	if err != nil {
		return "", err
	}
	return param.Name(), nil
}

func (b *Backend) ParameterRange(p host.Parameter) (float64, float64, error) {
	param, err := asParameter(p)
	if err != nil {
		return 0, 0, err
	}
	return param.Min(), param.Max(), nil
}

// native returns the Live parameter holding prop of target, or nil for
// track mute, which is a plain track property.
func (b *Backend) native(target any, prop host.Property) (DeviceParameter, error) {
	switch prop {
	case host.TrackMute:
		_, err := asTrack(target)
		return nil, err
	case host.TrackVolume, host.TrackPan:
		t, err := asTrack(target)
		if err != nil {
			return nil, err
		}
		if prop == host.TrackVolume {
			return t.MixerDevice().Volume(), nil
		}
		return t.MixerDevice().Panning(), nil
	case host.PluginEnabled:
		d, err := asDevice(target)
		if err != nil {
			return nil, err
		}
		for _, p := range d.Parameters() {
			if strings.EqualFold(p.Name(), deviceOn) {
				return p, nil
			}
		}
		return nil, &host.NotFoundError{Kind: "Parameter", Name: deviceOn}
	case host.ParameterValue:
		return asParameter(target)
	}
	return nil, fmt.Errorf("unknown property %q", prop)
}

func (b *Backend) Get(target any, prop host.Property) (any, error) {
	param, err := b.native(target, prop)
	if err != nil {
		return nil, err
	}
	switch prop {
	case host.TrackMute:
		return target.(Track).Mute(), nil
	case host.TrackVolume:
		return volume.Live.ToDB(param.Value()), nil
	case host.PluginEnabled:
		return param.Value() != 0, nil
	}
	return param.Value(), nil
}

func (b *Backend) Set(target any, prop host.Property, value any) error {
	param, err := b.native(target, prop)
	if err != nil {
		return err
	}
	switch prop {
	case host.TrackMute, host.PluginEnabled:
		v, ok := value.(bool)
		if !ok {
			return &host.TypeError{Prop: prop, Value: value}
		}
		if prop == host.TrackMute {
			target.(Track).SetMute(v)
		} else if v {
			param.SetValue(1)
		} else {
			param.SetValue(0)
		}
		return nil
	}

	v, ok := value.(float64)
	if !ok {
		return &host.TypeError{Prop: prop, Value: value}
	}
	if prop == host.TrackVolume {
		v = volume.Live.FromDB(v)
	}
	param.SetValue(v)
	return nil
}

func (b *Backend) Watch(target any, prop host.Property, notify func()) (func(), error) {
	param, err := b.native(target, prop)
	if err != nil {
		return nil, err
	}
	if prop == host.TrackMute {
		return target.(Track).AddMuteListener(notify), nil
	}
	return param.AddValueListener(notify), nil
}

func asTrack(h any) (Track, error) {
	t, ok := h.(Track)
	if !ok || t == nil {
		return nil, fmt.Errorf("not a Live track: %T", h)
	}
	return t, nil
}

func asDevice(h any) (Device, error) {
	d, ok := h.(Device)
	if !ok || d == nil {
		return nil, fmt.Errorf("not a Live device: %T", h)
	}
	return d, nil
}

func asParameter(h any) (DeviceParameter, error) {
	p, ok := h.(DeviceParameter)
	if !ok || p == nil {
		return nil, fmt.Errorf("not a Live parameter: %T", h)
	}
	return p, nil
}
