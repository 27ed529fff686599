// Package hosttest provides an in-memory host for tests. Values can be
// changed out of band, the way a user moving a fader in the DAW would.
package hosttest

import (
	"fmt"
	"sync"

	"github.com/Conceptual-Machines/dawscript-go/handle"
	"github.com/Conceptual-Machines/dawscript-go/host"
)

type Track struct {
	b       *Backend
	name    string
	typ     host.TrackType
	mute    bool
	volume  float64
	pan     float64
	plugins []*Plugin
}

type Plugin struct {
	b       *Backend
	track   *Track
	name    string
	enabled bool
	params  []*Parameter
}

type Parameter struct {
	b        *Backend
	plugin   *Plugin
	name     string
	min, max float64
	value    float64
}

// Backend is a host.Backend over an in-memory project. It polls by default;
// with Watching set it pushes notifications like a host with native
// listeners.
type Backend struct {
	mu       sync.Mutex
	tracks   []*Track
	watches  map[watchKey]map[int]func()
	watchSeq int
	midi     [][]byte
	project  string
	loaded   bool

	// Watching makes Watch register notifications instead of returning
	// host.ErrNotSupported.
	Watching bool

	Logs     []string
	Displays []string
}

type watchKey struct {
	target any
	prop   host.Property
}

var (
	_ host.Backend        = (*Backend)(nil)
	_ host.Watcher        = (*Backend)(nil)
	_ host.MIDISource     = (*Backend)(nil)
	_ host.ProjectTracker = (*Backend)(nil)
)

func NewBackend() *Backend {
	return &Backend{watches: map[watchKey]map[int]func(){}}
}

// AddTrack appends a track with volume 0 dB and center pan.
func (b *Backend) AddTrack(name string, typ host.TrackType) *Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &Track{b: b, name: name, typ: typ}
	b.tracks = append(b.tracks, t)
	return t
}

// RemoveTrack deletes t from the project.
func (b *Backend) RemoveTrack(t *Track) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.tracks {
		if x == t {
			b.tracks = append(b.tracks[:i], b.tracks[i+1:]...)
			return
		}
	}
}

func (t *Track) AddPlugin(name string) *Plugin {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	p := &Plugin{b: t.b, track: t, name: name, enabled: true}
	t.plugins = append(t.plugins, p)
	return p
}

func (p *Plugin) AddParameter(name string, min, max, value float64) *Parameter {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	param := &Parameter{b: p.b, plugin: p, name: name, min: min, max: max, value: value}
	p.params = append(p.params, param)
	return param
}

// SetMute changes mute out of band.
func (t *Track) SetMute(mute bool) {
	t.b.external(t, host.TrackMute, func() { t.mute = mute })
}

// SetVolume changes volume out of band.
func (t *Track) SetVolume(db float64) {
	t.b.external(t, host.TrackVolume, func() { t.volume = db })
}

// SetEnabled changes the enabled state out of band.
func (p *Plugin) SetEnabled(enabled bool) {
	p.b.external(p, host.PluginEnabled, func() { p.enabled = enabled })
}

// SetValue changes the parameter out of band.
func (p *Parameter) SetValue(value float64) {
	p.b.external(p, host.ParameterValue, func() { p.value = value })
}

// Mute reads mute without going through a session.
func (t *Track) Mute() bool {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	return t.mute
}

// Value reads the parameter without going through a session.
func (p *Parameter) Value() float64 {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	return p.value
}

func (b *Backend) external(target any, prop host.Property, change func()) {
	b.mu.Lock()
	change()
	notify := b.notifiers(target, prop)
	b.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
}

func (b *Backend) notifiers(target any, prop host.Property) []func() {
	var fns []func()
	for _, fn := range b.watches[watchKey{target, prop}] {
		fns = append(fns, fn)
	}
	return fns
}

// PushMIDI queues a message for the next ReadMIDI.
func (b *Backend) PushMIDI(msg ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.midi = append(b.midi, msg)
}

// LoadProject simulates the host opening a project.
func (b *Backend) LoadProject(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.project = key
	b.loaded = true
}

// ActiveWatches returns the number of native registrations for (target, prop).
func (b *Backend) ActiveWatches(target any, prop host.Property) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watches[watchKey{target, prop}])
}

func (b *Backend) Name() string { return "test" }

func (b *Backend) Log(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Logs = append(b.Logs, message)
}

func (b *Backend) Display(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Displays = append(b.Displays, message)
}

func (b *Backend) Identify(h any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch v := h.(type) {
	case *Track:
		return b.trackPath(v)
	case *Plugin:
		return b.pluginPath(v)
	case *Parameter:
		p, err := b.pluginPath(v.plugin)
		if err != nil {
			return "", err
		}
		return handle.Path(p, handle.Component(indexOf(v.plugin.params, v), v.name)), nil
	}
	return "", fmt.Errorf("not a test handle: %T", h)
}

func (b *Backend) trackPath(t *Track) (string, error) {
	i := indexOf(b.tracks, t)
	if i < 0 {
		return "", fmt.Errorf("track %q is not in the project", t.name)
	}
	return handle.Component(i, t.name), nil
}

func (b *Backend) pluginPath(p *Plugin) (string, error) {
	t, err := b.trackPath(p.track)
	if err != nil {
		return "", err
	}
	return handle.Path(t, handle.Component(indexOf(p.track.plugins, p), p.name)), nil
}

func indexOf[T comparable](s []T, v T) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func (b *Backend) Tracks() ([]host.Track, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tracks := make([]host.Track, len(b.tracks))
	for i, t := range b.tracks {
		tracks[i] = t
	}
	return tracks, nil
}

func (b *Backend) TrackName(t host.Track) (string, error) {
	tr, err := asTrack(t)
	if err != nil {
		return "", err
	}
	return tr.name, nil
}

func (b *Backend) TrackType(t host.Track) (host.TrackType, error) {
	tr, err := asTrack(t)
	if err != nil {
		return host.TrackOther, err
	}
	return tr.typ, nil
}

func (b *Backend) TrackPlugins(t host.Track) ([]host.Plugin, error) {
	tr, err := asTrack(t)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	plugins := make([]host.Plugin, len(tr.plugins))
	for i, p := range tr.plugins {
		plugins[i] = p
	}
	return plugins, nil
}

func (b *Backend) PluginName(p host.Plugin) (string, error) {
	pl, err := asPlugin(p)
	if err != nil {
		return "", err
	}
	return pl.name, nil
}

func (b *Backend) PluginParameters(p host.Plugin) ([]host.Parameter, error) {
	pl, err := asPlugin(p)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	params := make([]host.Parameter, len(pl.params))
	for i, param := range pl.params {
		params[i] = param
	}
	return params, nil
}

func (b *Backend) ParameterName(p host.Parameter) (string, error) {
	param, err := asParameter(p)
	if err != nil {
		return "", err
	}
	return param.name, nil
}

func (b *Backend) ParameterRange(p host.Parameter) (float64, float64, error) {
	param, err := asParameter(p)
	if err != nil {
		return 0, 0, err
	}
	return param.min, param.max, nil
}

func (b *Backend) Get(target any, prop host.Property) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch prop {
	case host.TrackMute, host.TrackVolume, host.TrackPan:
		t, err := asTrack(target)
		if err != nil {
			return nil, err
		}
		switch prop {
		case host.TrackMute:
			return t.mute, nil
		case host.TrackVolume:
			return t.volume, nil
		}
		return t.pan, nil
	case host.PluginEnabled:
		p, err := asPlugin(target)
		if err != nil {
			return nil, err
		}
		return p.enabled, nil
	case host.ParameterValue:
		p, err := asParameter(target)
		if err != nil {
			return nil, err
		}
		return p.value, nil
	}
	return nil, fmt.Errorf("unknown property %q", prop)
}

func (b *Backend) Set(target any, prop host.Property, value any) error {
	b.mu.Lock()
	if err := b.set(target, prop, value); err != nil {
		b.mu.Unlock()
		return err
	}
	notify := b.notifiers(target, prop)
	b.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
	return nil
}

func (b *Backend) set(target any, prop host.Property, value any) error {
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
			t.mute = v
			return nil
		}
		p, err := asPlugin(target)
		if err != nil {
			return err
		}
		p.enabled = v
		return nil
	case host.TrackVolume, host.TrackPan, host.ParameterValue:
		v, ok := value.(float64)
		if !ok {
			return &host.TypeError{Prop: prop, Value: value}
		}
		if prop == host.ParameterValue {
			p, err := asParameter(target)
			if err != nil {
				return err
			}
			p.value = v
			return nil
		}
		t, err := asTrack(target)
		if err != nil {
			return err
		}
		if prop == host.TrackVolume {
			t.volume = v
		} else {
			t.pan = v
		}
		return nil
	}
	return fmt.Errorf("unknown property %q", prop)
}

func (b *Backend) Watch(target any, prop host.Property, notify func()) (func(), error) {
	if !b.Watching {
		return nil, host.ErrNotSupported
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := watchKey{target, prop}
	if b.watches[k] == nil {
		b.watches[k] = map[int]func(){}
	}
	b.watchSeq++
	id := b.watchSeq
	b.watches[k][id] = notify
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watches[k], id)
		if len(b.watches[k]) == 0 {
			delete(b.watches, k)
		}
	}, nil
}

func (b *Backend) ReadMIDI() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.midi
	b.midi = nil
	return msgs
}

func (b *Backend) ProjectKey() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.project, b.loaded
}

func asTrack(h any) (*Track, error) {
	if t, ok := h.(*Track); ok && t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("not a track: %T", h)
}

func asPlugin(h any) (*Plugin, error) {
	if p, ok := h.(*Plugin); ok && p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("not a plugin: %T", h)
}

func asParameter(h any) (*Parameter, error) {
	if p, ok := h.(*Parameter); ok && p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("not a parameter: %T", h)
}
