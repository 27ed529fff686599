package host

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/dawscript-go/listener"
)

// Facade is the capability surface shared by every host: transport of MIDI
// aside, it covers mixer, plugin and parameter control. All methods must be
// called from the control goroutine of the session.
type Facade struct {
	backend Backend
	session *Session
}

// Name returns the host name ("reaper", "live", "bitwig" or "cli").
func (f *Facade) Name() string {
	return f.backend.Name()
}

// Log writes to the host log.
func (f *Facade) Log(message string) {
	f.backend.Log(message)
}

// Display shows a message to the user.
func (f *Facade) Display(message string) {
	f.backend.Display(message)
}

// Session returns the session the facade is bound to.
func (f *Facade) Session() *Session {
	return f.session
}

// StableID returns the short session-stable id of a track, plugin or
// parameter.
func (f *Facade) StableID(h any) (string, error) {
	if err := f.session.checkActive(); err != nil {
		return "", err
	}
	return f.session.registry.StableID(h)
}

// Resolve returns the handle a StableID was issued for.
func (f *Facade) Resolve(id string) (any, error) {
	return f.session.registry.Resolve(id)
}

func (f *Facade) Tracks() ([]Track, error) {
	if err := f.session.checkActive(); err != nil {
		return nil, err
	}
	tracks, err := f.backend.Tracks()
	return issue(f, tracks), err
}

func (f *Facade) TrackName(t Track) (string, error) {
	if err := f.check(t); err != nil {
		return "", err
	}
	return f.backend.TrackName(t)
}

func (f *Facade) TrackType(t Track) (TrackType, error) {
	if err := f.check(t); err != nil {
		return TrackOther, err
	}
	return f.backend.TrackType(t)
}

func (f *Facade) IsTrackMute(t Track) (bool, error) {
	return f.getBool(t, TrackMute)
}

func (f *Facade) SetTrackMute(t Track, mute bool) error {
	return f.set(t, TrackMute, mute)
}

func (f *Facade) AddTrackMuteListener(t Track, fn func(mute bool)) (ListenerID, error) {
	return f.AddListener(t, TrackMute, listener.Local, func(v any) { fn(v.(bool)) })
}

func (f *Facade) RemoveTrackMuteListener(t Track, id ListenerID) error {
	return f.RemoveListener(t, TrackMute, id)
}

// TrackVolume returns the track fader level in dB.
func (f *Facade) TrackVolume(t Track) (float64, error) {
	return f.getFloat(t, TrackVolume)
}

// SetTrackVolume sets the track fader level in dB.
func (f *Facade) SetTrackVolume(t Track, db float64) error {
	return f.set(t, TrackVolume, db)
}

func (f *Facade) AddTrackVolumeListener(t Track, fn func(db float64)) (ListenerID, error) {
	return f.AddListener(t, TrackVolume, listener.Local, func(v any) { fn(v.(float64)) })
}

func (f *Facade) RemoveTrackVolumeListener(t Track, id ListenerID) error {
	return f.RemoveListener(t, TrackVolume, id)
}

// TrackPan returns the track pan in [-1, 1].
func (f *Facade) TrackPan(t Track) (float64, error) {
	return f.getFloat(t, TrackPan)
}

func (f *Facade) SetTrackPan(t Track, pan float64) error {
	return f.set(t, TrackPan, pan)
}

func (f *Facade) AddTrackPanListener(t Track, fn func(pan float64)) (ListenerID, error) {
	return f.AddListener(t, TrackPan, listener.Local, func(v any) { fn(v.(float64)) })
}

func (f *Facade) RemoveTrackPanListener(t Track, id ListenerID) error {
	return f.RemoveListener(t, TrackPan, id)
}

func (f *Facade) TrackPlugins(t Track) ([]Plugin, error) {
	if err := f.check(t); err != nil {
		return nil, err
	}
	plugins, err := f.backend.TrackPlugins(t)
	return issue(f, plugins), err
}

func (f *Facade) PluginName(p Plugin) (string, error) {
	if err := f.check(p); err != nil {
		return "", err
	}
	return f.backend.PluginName(p)
}

func (f *Facade) IsPluginEnabled(p Plugin) (bool, error) {
	return f.getBool(p, PluginEnabled)
}

func (f *Facade) SetPluginEnabled(p Plugin, enabled bool) error {
	return f.set(p, PluginEnabled, enabled)
}

func (f *Facade) AddPluginEnabledListener(p Plugin, fn func(enabled bool)) (ListenerID, error) {
	return f.AddListener(p, PluginEnabled, listener.Local, func(v any) { fn(v.(bool)) })
}

func (f *Facade) RemovePluginEnabledListener(p Plugin, id ListenerID) error {
	return f.RemoveListener(p, PluginEnabled, id)
}

func (f *Facade) PluginParameters(p Plugin) ([]Parameter, error) {
	if err := f.check(p); err != nil {
		return nil, err
	}
	params, err := f.backend.PluginParameters(p)
	return issue(f, params), err
}

func (f *Facade) ParameterName(p Parameter) (string, error) {
	if err := f.check(p); err != nil {
		return "", err
	}
	return f.backend.ParameterName(p)
}

func (f *Facade) ParameterRange(p Parameter) (min, max float64, err error) {
	if err := f.check(p); err != nil {
		return 0, 0, err
	}
	return f.backend.ParameterRange(p)
}

func (f *Facade) ParameterValue(p Parameter) (float64, error) {
	return f.getFloat(p, ParameterValue)
}

func (f *Facade) SetParameterValue(p Parameter, value float64) error {
	return f.set(p, ParameterValue, value)
}

func (f *Facade) AddParameterValueListener(p Parameter, fn func(value float64)) (ListenerID, error) {
	return f.AddListener(p, ParameterValue, listener.Local, func(v any) { fn(v.(float64)) })
}

func (f *Facade) RemoveParameterValueListener(p Parameter, id ListenerID) error {
	return f.RemoveListener(p, ParameterValue, id)
}

// Get reads any property in facade units.
func (f *Facade) Get(target any, prop Property) (any, error) {
	if err := f.check(target); err != nil {
		return nil, err
	}
	return f.backend.Get(target, prop)
}

// Set writes any property in facade units.
func (f *Facade) Set(target any, prop Property, value any) error {
	return f.set(target, prop, value)
}

// AddListener subscribes fn to changes of prop on target on behalf of
// client. Hosts with native notifications are watched, all others polled
// every tick.
func (f *Facade) AddListener(target any, prop Property, client string, fn func(any)) (ListenerID, error) {
	key, err := f.key(target, prop)
	if err != nil {
		return 0, err
	}

	get := func() (any, error) { return f.backend.Get(target, prop) }
	w, ok := f.backend.(Watcher)
	if !ok {
		return f.session.reconciler.Add(key, client, get, nil, fn)
	}

	id, err := f.session.reconciler.Add(key, client, get, func(notify func()) (func(), error) {
		return w.Watch(target, prop, notify)
	}, fn)
	if errors.Is(err, ErrNotSupported) {
		return f.session.reconciler.Add(key, client, get, nil, fn)
	}
	return id, err
}

// RemoveListener drops a registration. Removing a listener that is not
// registered is logged and otherwise ignored.
func (f *Facade) RemoveListener(target any, prop Property, id ListenerID) error {
	key, err := f.key(target, prop)
	if err != nil {
		f.session.log.WithError(err).WithField("prop", string(prop)).Warn("remove listener")
		return nil
	}
	if err := f.session.reconciler.Remove(key, id); err != nil {
		f.session.log.WithField("key", key.String()).Warn(err.Error())
	}
	return nil
}

// RemoveClientListeners drops every registration made on behalf of client.
func (f *Facade) RemoveClientListeners(client string) int {
	return f.session.reconciler.RemoveClient(client)
}

// MuteEcho keeps client from hearing the notification caused by its own
// write to prop on target.
func (f *Facade) MuteEcho(target any, prop Property, client string) error {
	key, err := f.key(target, prop)
	if err != nil {
		return err
	}
	f.session.reconciler.Mute(key, client)
	return nil
}

func (f *Facade) key(target any, prop Property) (listener.Key, error) {
	if err := f.check(target); err != nil {
		return listener.Key{}, err
	}
	id, err := f.session.registry.StableID(target)
	if err != nil {
		return listener.Key{}, err
	}
	return listener.Key{Target: id, Prop: string(prop)}, nil
}

func (f *Facade) set(target any, prop Property, value any) error {
	if err := f.check(target); err != nil {
		return err
	}
	if err := f.backend.Set(target, prop, value); err != nil {
		return fmt.Errorf("set %s: %w", prop, err)
	}
	return nil
}

func (f *Facade) getBool(target any, prop Property) (bool, error) {
	v, err := f.Get(target, prop)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Prop: prop, Value: v}
	}
	return b, nil
}

func (f *Facade) getFloat(target any, prop Property) (float64, error) {
	v, err := f.Get(target, prop)
	if err != nil {
		return 0, err
	}
	x, ok := v.(float64)
	if !ok {
		return 0, &TypeError{Prop: prop, Value: v}
	}
	return x, nil
}

// check fails for a torn-down session and for handles issued before the last
// project load.
func (f *Facade) check(h any) error {
	if err := f.session.checkActive(); err != nil {
		return err
	}
	return f.session.registry.Check(h)
}

func issue[T any](f *Facade, hs []T) []T {
	for _, h := range hs {
		f.session.registry.Issue(h)
	}
	return hs
}
