package reaper

import (
	"fmt"
	"os"
	"strings"

	"github.com/Conceptual-Machines/dawscript-go/handle"
	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/volume"
)

type fxRef struct {
	track MediaTrack
	index int
}

type paramRef struct {
	fx    fxRef
	index int
}

// midiInputFlag marks a MIDI record input in I_RECINPUT.
const midiInputFlag = 4096

// defaultProjectSuffix is the path REAPER reports before a project is
// saved; it is not treated as a project load.
const defaultProjectSuffix = "REAPER Media"

// Backend implements host.Backend on the REAPER API.
type Backend struct {
	api       API
	config    host.Config
	lastEvent int
}

var (
	_ host.Backend        = (*Backend)(nil)
	_ host.PluginFinder   = (*Backend)(nil)
	_ host.ProjectTracker = (*Backend)(nil)
	_ host.MIDISource     = (*Backend)(nil)
)

func NewBackend(api API) *Backend {
	return &Backend{api: api, config: host.AllMIDIInputs}
}

// SetConfig sets which MIDI inputs ReadMIDI accepts.
func (b *Backend) SetConfig(cfg host.Config) {
	b.config = cfg
}

func (b *Backend) Name() string { return "reaper" }

func (b *Backend) Log(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func (b *Backend) Display(message string) {
	b.api.ShowConsoleMsg(message + "\n")
}

func (b *Backend) Identify(h any) (string, error) {
	switch v := h.(type) {
	case MediaTrack:
		return b.trackID(v)
	case fxRef:
		return b.fxID(v)
	case paramRef:
		fx, err := b.fxID(v.fx)
		if err != nil {
			return "", err
		}
		name := b.api.TrackFXGetParamName(v.fx.track, v.fx.index, v.index)
		return handle.Path(fx, handle.Component(v.index, name)), nil
	}
	return "", fmt.Errorf("not a REAPER handle: %T", h)
}

func (b *Backend) trackID(t MediaTrack) (string, error) {
	for i := 0; ; i++ {
		track, ok := b.api.GetTrack(i)
		if !ok {
			return "", fmt.Errorf("track %#x is not in the project", uintptr(t))
		}
		if track == t {
			return handle.Component(i, b.api.GetTrackName(t)), nil
		}
	}
}

func (b *Backend) fxID(fx fxRef) (string, error) {
	track, err := b.trackID(fx.track)
	if err != nil {
		return "", err
	}
	name := b.api.TrackFXGetFXName(fx.track, fx.index)
	return handle.Path(track, handle.Component(fx.index, name)), nil
}

func (b *Backend) Tracks() ([]host.Track, error) {
	var tracks []host.Track
	for i := 0; ; i++ {
		t, ok := b.api.GetTrack(i)
		if !ok {
			return tracks, nil
		}
		tracks = append(tracks, t)
	}
}

func (b *Backend) TrackName(t host.Track) (string, error) {
	track, err := asTrack(t)
	if err != nil {
		return "", err
	}
	return b.api.GetTrackName(track), nil
}

func (b *Backend) TrackType(t host.Track) (host.TrackType, error) {
	track, err := asTrack(t)
	if err != nil {
		return host.TrackOther, err
	}
	switch in := b.api.GetTrackRecordInput(track); {
	case in < 0:
		return host.TrackOther, nil
	case in&midiInputFlag != 0:
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
	n := b.api.TrackFXGetCount(track)
	plugins := make([]host.Plugin, n)
	for i := range plugins {
		plugins[i] = fxRef{track: track, index: i}
	}
	return plugins, nil
}

// FindTrackPlugin uses REAPER's own FX lookup, which also matches partial
// and instance names.
func (b *Backend) FindTrackPlugin(t host.Track, name string) (host.Plugin, error) {
	track, err := asTrack(t)
	if err != nil {
		return nil, err
	}
	i := b.api.TrackFXGetByName(track, name)
	if i < 0 {
		return nil, &host.NotFoundError{Kind: "Plugin", Name: name}
	}
	return fxRef{track: track, index: i}, nil
}

func (b *Backend) PluginName(p host.Plugin) (string, error) {
	fx, err := asFX(p)
	if err != nil {
		return "", err
	}
	return b.api.TrackFXGetFXName(fx.track, fx.index), nil
}

func (b *Backend) PluginParameters(p host.Plugin) ([]host.Parameter, error) {
	fx, err := asFX(p)
	if err != nil {
		return nil, err
	}
	n := b.api.TrackFXGetNumParams(fx.track, fx.index)
	params := make([]host.Parameter, n)
	for i := range params {
		params[i] = paramRef{fx: fx, index: i}
	}
	return params, nil
}

func (b *Backend) ParameterName(p host.Parameter) (string, error) {
	param, err := asParam(p)
	if err != nil {
		return "", err
	}
	return b.api.TrackFXGetParamName(param.fx.track, param.fx.index, param.index), nil
}

func (b *Backend) ParameterRange(p host.Parameter) (float64, float64, error) {
	param, err := asParam(p)
	if err != nil {
		return 0, 0, err
	}
	_, min, max := b.api.TrackFXGetParam(param.fx.track, param.fx.index, param.index)
	return min, max, nil
}

func (b *Backend) Get(target any, prop host.Property) (any, error) {
	switch prop {
	case host.TrackMute:
		t, err := asTrack(target)
		if err != nil {
			return nil, err
		}
		return b.api.GetTrackUIMute(t), nil
	case host.TrackVolume:
		t, err := asTrack(target)
		if err != nil {
			return nil, err
		}
		vol, _ := b.api.GetTrackUIVolPan(t)
		return volume.Reaper.ToDB(vol), nil
	case host.TrackPan:
		t, err := asTrack(target)
		if err != nil {
			return nil, err
		}
		_, pan := b.api.GetTrackUIVolPan(t)
		return pan, nil
	case host.PluginEnabled:
		fx, err := asFX(target)
		if err != nil {
			return nil, err
		}
		return b.api.TrackFXGetEnabled(fx.track, fx.index), nil
	case host.ParameterValue:
		param, err := asParam(target)
		if err != nil {
			return nil, err
		}
		value, _, _ := b.api.TrackFXGetParam(param.fx.track, param.fx.index, param.index)
		return value, nil
	}
	return nil, fmt.Errorf("unknown property %q", prop)
}

func (b *Backend) Set(target any, prop host.Property, value any) error {
	switch prop {
	case host.TrackMute, host.PluginEnabled:
		v, ok := value.(bool)
		if !ok {
			return &host.TypeError{Prop: prop, Value: value}
		}
		if prop == host.TrackMute {
			t, err := asTrack(target)
			if err != nil {
				return err
			}
			b.api.SetTrackUIMute(t, v)
			return nil
		}
		fx, err := asFX(target)
		if err != nil {
			return err
		}
		b.api.TrackFXSetEnabled(fx.track, fx.index, v)
		return nil

	case host.TrackVolume, host.TrackPan, host.ParameterValue:
		v, ok := value.(float64)
		if !ok {
			return &host.TypeError{Prop: prop, Value: value}
		}
		if prop == host.ParameterValue {
			param, err := asParam(target)
			if err != nil {
				return err
			}
			b.api.TrackFXSetParam(param.fx.track, param.fx.index, param.index, v)
			return nil
		}
		t, err := asTrack(target)
		if err != nil {
			return err
		}
		if prop == host.TrackVolume {
			b.api.SetTrackUIVolume(t, volume.Reaper.FromDB(v))
		} else {
			b.api.SetTrackUIPan(t, v)
		}
		return nil
	}
	return fmt.Errorf("unknown property %q", prop)
}

func (b *Backend) ProjectKey() (string, bool) {
	path := b.api.GetProjectPath()
	if path == "" || strings.HasSuffix(path, defaultProjectSuffix) {
		return "", false
	}
	return path, true
}

// ReadMIDI returns the input events received since the previous call,
// oldest first, from the inputs accepted by the controller config.
func (b *Backend) ReadMIDI() [][]byte {
	var recent [][]byte
	newest := b.lastEvent
	for i := 0; ; i++ {
		seq, msg, device := b.api.MIDIGetRecentInputEvent(i)
		if seq <= b.lastEvent || len(msg) == 0 {
			break
		}
		if i == 0 {
			newest = seq
		}
		if !b.accepts(device) {
			continue
		}
		recent = append(recent, trimMessage(msg))
	}
	b.lastEvent = newest

	msgs := make([][]byte, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		msgs = append(msgs, recent[i])
	}
	return msgs
}

func (b *Backend) accepts(device int) bool {
	if b.config.MIDIInputs == nil {
		return true
	}
	name, ok := b.api.GetMIDIInputName(device)
	return ok && b.config.AcceptsInput(name)
}

// trimMessage cuts REAPER's fixed size event buffer to the length implied
// by the status byte.
func trimMessage(buf []byte) []byte {
	size := 1
	switch buf[0] & 0xf0 {
	case 0x80, 0x90, 0xb0:
		size = 3
	case 0xc0:
		size = 2
	}
	if size > len(buf) {
		size = len(buf)
	}
	return append([]byte(nil), buf[:size]...)
}

func asTrack(h any) (MediaTrack, error) {
	t, ok := h.(MediaTrack)
	if !ok || t == 0 {
		return 0, fmt.Errorf("not a REAPER track: %T", h)
	}
	return t, nil
}

func asFX(h any) (fxRef, error) {
	fx, ok := h.(fxRef)
	if !ok {
		return fxRef{}, fmt.Errorf("not a REAPER FX: %T", h)
	}
	return fx, nil
}

func asParam(h any) (paramRef, error) {
	p, ok := h.(paramRef)
	if !ok {
		return paramRef{}, fmt.Errorf("not a REAPER FX parameter: %T", h)
	}
	return p, nil
}
