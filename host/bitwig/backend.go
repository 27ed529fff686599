package bitwig

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/models"
	"github.com/Conceptual-Machines/dawscript-go/volume"
	"github.com/sirupsen/logrus"
)

// Object is a reference to a controller API object, issued by the
// extension.
type Object string

// names of the properties on the extension side
var remoteProps = map[host.Property]string{
	host.TrackMute:      "mute",
	host.TrackVolume:    "volume",
	host.TrackPan:       "pan",
	host.PluginEnabled:  "enabled",
	host.ParameterValue: "value",
}

// Backend implements host.Backend with calls to the extension. Every call is
// a synchronous round trip.
type Backend struct {
	ctx    context.Context
	client *Client
	log    logrus.FieldLogger

	nextListener int64
	watchers     map[int64]func()
	midi         [][]byte
	project      string
	loaded       bool
}

var (
	_ host.Backend        = (*Backend)(nil)
	_ host.Watcher        = (*Backend)(nil)
	_ host.MIDISource     = (*Backend)(nil)
	_ host.ProjectTracker = (*Backend)(nil)
)

// NewBackend wraps client. ctx bounds every call.
func NewBackend(ctx context.Context, client *Client, log logrus.FieldLogger) *Backend {
	return &Backend{
		ctx:      ctx,
		client:   client,
		log:      log,
		watchers: make(map[int64]func()),
	}
}

func (b *Backend) call(method string, result any, params ...any) error {
	return b.client.Call(b.ctx, method, result, params...)
}

func (b *Backend) Name() string { return "bitwig" }

// Log writes to the Bitwig log, or stderr when the bridge is gone.
func (b *Backend) Log(message string) {
	if err := b.call("log", nil, message); err != nil {
		fmt.Fprintln(os.Stderr, message)
	}
}

func (b *Backend) Display(message string) {
	if err := b.call("showPopupNotification", nil, message); err != nil {
		b.log.WithError(err).Warn("display failed")
	}
}

// Identify asks the extension for the object's 32-bit stable id.
func (b *Backend) Identify(h any) (string, error) {
	obj, err := asObject(h)
	if err != nil {
		return "", err
	}
	var id int64
	if err := b.call("getStableObjectId", &id, obj); err != nil {
		return "", err
	}
	return fmt.Sprintf("%08x", uint32(id)), nil
}

func (b *Backend) objects(method string, params ...any) ([]Object, error) {
	var objs []Object
	if err := b.call(method, &objs, params...); err != nil {
		return nil, err
	}
	return objs, nil
}

func (b *Backend) Tracks() ([]host.Track, error) {
	objs, err := b.objects("getTracks")
	if err != nil {
		return nil, err
	}
	tracks := make([]host.Track, len(objs))
	for i, o := range objs {
		tracks[i] = o
	}
	return tracks, nil
}

func (b *Backend) name(method string, h any) (string, error) {
	obj, err := asObject(h)
	if err != nil {
		return "", err
	}
	var name string
	err = b.call(method, &name, obj)
	return name, err
}

func (b *Backend) TrackName(t host.Track) (string, error) {
	return b.name("getTrackName", t)
}

func (b *Backend) TrackType(t host.Track) (host.TrackType, error) {
	typ, err := b.name("getTrackType", t)
	if err != nil {
		return host.TrackOther, err
	}
	switch typ {
	case "Audio":
		return host.TrackAudio, nil
	case "Instrument":
		return host.TrackMIDI, nil
	}
	return host.TrackOther, nil
}

func (b *Backend) TrackPlugins(t host.Track) ([]host.Plugin, error) {
	obj, err := asObject(t)
	if err != nil {
		return nil, err
	}
	objs, err := b.objects("getTrackDevices", obj)
	if err != nil {
		return nil, err
	}
	plugins := make([]host.Plugin, len(objs))
	for i, o := range objs {
		plugins[i] = o
	}
	return plugins, nil
}

func (b *Backend) PluginName(p host.Plugin) (string, error) {
	return b.name("getDeviceName", p)
}

func (b *Backend) PluginParameters(p host.Plugin) ([]host.Parameter, error) {
	obj, err := asObject(p)
	if err != nil {
		return nil, err
	}
	objs, err := b.objects("getDeviceParameters", obj)
	if err != nil {
		return nil, err
	}
	params := make([]host.Parameter, len(objs))
	for i, o := range objs {
		params[i] = o
	}
	return params, nil
}

func (b *Backend) ParameterName(p host.Parameter) (string, error) {
	return b.name("getParameterName", p)
}

func (b *Backend) ParameterRange(p host.Parameter) (float64, float64, error) {
	obj, err := asObject(p)
	if err != nil {
		return 0, 0, err
	}
	var r [2]float64
	if err := b.call("getParameterRange", &r, obj); err != nil {
		return 0, 0, err
	}
	return r[0], r[1], nil
}

func (b *Backend) Get(target any, prop host.Property) (any, error) {
	obj, err := asObject(target)
	if err != nil {
		return nil, err
	}
	remote, ok := remoteProps[prop]
	if !ok {
		return nil, fmt.Errorf("unknown property %q", prop)
	}

	var raw json.RawMessage
	if err := b.call("get", &raw, obj, remote); err != nil {
		return nil, err
	}
	return decodeValue(prop, raw)
}

func decodeValue(prop host.Property, raw json.RawMessage) (any, error) {
	switch prop {
	case host.TrackMute, host.PluginEnabled:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", prop, err)
		}
		return v, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", prop, err)
	}
	switch prop {
	case host.TrackVolume:
		return volume.Bitwig.ToDB(v), nil
	case host.TrackPan:
		return 2*v - 1, nil
	}
	return v, nil
}

func (b *Backend) Set(target any, prop host.Property, value any) error {
	obj, err := asObject(target)
	if err != nil {
		return err
	}
	remote, ok := remoteProps[prop]
	if !ok {
		return fmt.Errorf("unknown property %q", prop)
	}

	switch prop {
	case host.TrackMute, host.PluginEnabled:
		if _, ok := value.(bool); !ok {
			return &host.TypeError{Prop: prop, Value: value}
		}
	default:
		v, ok := value.(float64)
		if !ok {
			return &host.TypeError{Prop: prop, Value: value}
		}
		switch prop {
		case host.TrackVolume:
			value = volume.Bitwig.FromDB(v)
		case host.TrackPan:
			value = (v + 1) / 2
		}
	}
	return b.call("set", nil, obj, remote, value)
}

// Watch registers a listener on the extension under a fresh id. The
// extension reports changes with that id; cancel must unregister the same
// id or the extension keeps the listener object alive.
func (b *Backend) Watch(target any, prop host.Property, notify func()) (func(), error) {
	obj, err := asObject(target)
	if err != nil {
		return nil, err
	}
	remote, ok := remoteProps[prop]
	if !ok {
		return nil, host.ErrNotSupported
	}

	b.nextListener++
	id := b.nextListener
	if err := b.call("addListener", nil, obj, remote, id); err != nil {
		return nil, err
	}
	b.watchers[id] = notify

	return func() {
		delete(b.watchers, id)
		if err := b.call("removeListener", nil, obj, remote, id); err != nil {
			b.log.WithError(err).WithField("listener", id).Warn("remove listener failed")
		}
	}, nil
}

// Dispatch hands the notifications queued by the reader goroutine to the
// session. It runs on the control goroutine at the start of every tick.
func (b *Backend) Dispatch() {
	for _, msg := range b.client.Drain() {
		switch msg.Event {
		case models.EventListener:
			if notify, ok := b.watchers[msg.Listener]; ok {
				notify()
			}
		case models.EventMIDI:
			buf := make([]byte, len(msg.MIDI))
			for i, v := range msg.MIDI {
				buf[i] = byte(v)
			}
			b.midi = append(b.midi, buf)
		case models.EventProject:
			b.project = msg.Project
			b.loaded = true
		default:
			b.log.WithField("event", msg.Event).Warn("unknown notification")
		}
	}
}

func (b *Backend) ReadMIDI() [][]byte {
	msgs := b.midi
	b.midi = nil
	return msgs
}

func (b *Backend) ProjectKey() (string, bool) {
	return b.project, b.loaded
}

// SendConfig tells the extension which MIDI inputs to forward.
func (b *Backend) SendConfig(cfg host.Config) error {
	return b.call("setConfig", nil, map[string]any{"midi_inputs": cfg.MIDIInputs})
}

func asObject(h any) (Object, error) {
	obj, ok := h.(Object)
	if !ok || obj == "" {
		return "", fmt.Errorf("not a Bitwig object: %T", h)
	}
	return obj, nil
}
