package host

import (
	"fmt"
	"sort"
)

// CallFunc runs one named facade function with loosely typed arguments, as
// decoded from a remote request or a gadget gesture.
type CallFunc func(f *Facade, args []any) (any, error)

// UnknownFunctionError is returned by Call for names missing from the table.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// ArgumentError reports a missing or mistyped call argument.
type ArgumentError struct {
	Func  string
	Index int
	Want  string
	Got   any
}

func (e *ArgumentError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("%s: missing argument %d (%s)", e.Func, e.Index, e.Want)
	}
	return fmt.Sprintf("%s: argument %d must be %s, got %T", e.Func, e.Index, e.Want, e.Got)
}

// Call invokes the named function. Listener registration is not callable by
// name since it needs a Go callback; see AddListener.
func (f *Facade) Call(name string, args ...any) (any, error) {
	fn, ok := calls[name]
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}
	return fn(f, args)
}

// Callable lists the names accepted by Call in sorted order.
func Callable() []string {
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var calls = map[string]CallFunc{
	"name":    func(f *Facade, _ []any) (any, error) { return f.Name(), nil },
	"log":     withString("log", func(f *Facade, s string) (any, error) { f.Log(s); return nil, nil }),
	"display": withString("display", func(f *Facade, s string) (any, error) { f.Display(s); return nil, nil }),
	"get_stable_id": withHandle("get_stable_id", func(f *Facade, h any) (any, error) {
		return f.StableID(h)
	}),

	"get_tracks": func(f *Facade, _ []any) (any, error) {
		tracks, err := f.Tracks()
		return list(tracks), err
	},
	"get_track_name": withHandle("get_track_name", func(f *Facade, t any) (any, error) { return f.TrackName(t) }),
	"get_track_type": withHandle("get_track_type", func(f *Facade, t any) (any, error) { return f.TrackType(t) }),
	"is_track_mute":  withHandle("is_track_mute", func(f *Facade, t any) (any, error) { return f.IsTrackMute(t) }),
	"set_track_mute": setter("set_track_mute", TrackMute, argBool),
	"get_track_volume": withHandle("get_track_volume", func(f *Facade, t any) (any, error) {
		return f.TrackVolume(t)
	}),
	"set_track_volume": setter("set_track_volume", TrackVolume, argFloat),
	"get_track_pan":    withHandle("get_track_pan", func(f *Facade, t any) (any, error) { return f.TrackPan(t) }),
	"set_track_pan":    setter("set_track_pan", TrackPan, argFloat),
	"get_track_plugins": withHandle("get_track_plugins", func(f *Facade, t any) (any, error) {
		plugins, err := f.TrackPlugins(t)
		return list(plugins), err
	}),
	"get_track_by_name": withString("get_track_by_name", func(f *Facade, name string) (any, error) {
		return f.TrackByName(name)
	}),
	"toggle_track_mute": withHandle("toggle_track_mute", func(f *Facade, t any) (any, error) {
		return nil, f.ToggleTrackMute(t)
	}),
	"toggle_track_mute_by_name": withString("toggle_track_mute_by_name", func(f *Facade, name string) (any, error) {
		return nil, f.ToggleTrackMuteByName(name)
	}),
	"get_track_plugin_by_name": withHandleString("get_track_plugin_by_name", func(f *Facade, t any, name string) (any, error) {
		return f.TrackPluginByName(t, name)
	}),

	"get_plugin_name":    withHandle("get_plugin_name", func(f *Facade, p any) (any, error) { return f.PluginName(p) }),
	"is_plugin_enabled":  withHandle("is_plugin_enabled", func(f *Facade, p any) (any, error) { return f.IsPluginEnabled(p) }),
	"set_plugin_enabled": setter("set_plugin_enabled", PluginEnabled, argBool),
	"get_plugin_parameters": withHandle("get_plugin_parameters", func(f *Facade, p any) (any, error) {
		params, err := f.PluginParameters(p)
		return list(params), err
	}),
	"toggle_plugin_enabled": withHandle("toggle_plugin_enabled", func(f *Facade, p any) (any, error) {
		return nil, f.TogglePluginEnabled(p)
	}),
	"get_plugin_parameter_by_name": withHandleString("get_plugin_parameter_by_name", func(f *Facade, p any, name string) (any, error) {
		return f.PluginParameterByName(p, name)
	}),

	"get_parameter_name": withHandle("get_parameter_name", func(f *Facade, p any) (any, error) { return f.ParameterName(p) }),
	"get_parameter_range": withHandle("get_parameter_range", func(f *Facade, p any) (any, error) {
		lo, hi, err := f.ParameterRange(p)
		if err != nil {
			return nil, err
		}
		return []float64{lo, hi}, nil
	}),
	"get_parameter_value": withHandle("get_parameter_value", func(f *Facade, p any) (any, error) {
		return f.ParameterValue(p)
	}),
	"set_parameter_value": setter("set_parameter_value", ParameterValue, argFloat),
}

// SetterProperty returns the property written by a set_<prop> function.
func SetterProperty(name string) (Property, bool) {
	p, ok := setters[name]
	return p, ok
}

var setters = map[string]Property{
	"set_track_mute":      TrackMute,
	"set_track_volume":    TrackVolume,
	"set_track_pan":       TrackPan,
	"set_plugin_enabled":  PluginEnabled,
	"set_parameter_value": ParameterValue,
}

func list[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func argHandle(name string, args []any, i int) (any, error) {
	if i >= len(args) || args[i] == nil {
		return nil, &ArgumentError{Func: name, Index: i, Want: "a handle"}
	}
	return args[i], nil
}

func argString(name string, args []any, i int) (string, error) {
	if i >= len(args) {
		return "", &ArgumentError{Func: name, Index: i, Want: "a string"}
	}
	s, ok := args[i].(string)
	if !ok {
		return "", &ArgumentError{Func: name, Index: i, Want: "a string", Got: args[i]}
	}
	return s, nil
}

func argBool(name string, args []any, i int) (any, error) {
	if i >= len(args) {
		return nil, &ArgumentError{Func: name, Index: i, Want: "a boolean"}
	}
	switch v := args[i].(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	}
	return nil, &ArgumentError{Func: name, Index: i, Want: "a boolean", Got: args[i]}
}

func argFloat(name string, args []any, i int) (any, error) {
	if i >= len(args) {
		return nil, &ArgumentError{Func: name, Index: i, Want: "a number"}
	}
	switch v := args[i].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return nil, &ArgumentError{Func: name, Index: i, Want: "a number", Got: args[i]}
}

func withHandle(name string, fn func(f *Facade, h any) (any, error)) CallFunc {
	return func(f *Facade, args []any) (any, error) {
		h, err := argHandle(name, args, 0)
		if err != nil {
			return nil, err
		}
		return fn(f, h)
	}
}

func withString(name string, fn func(f *Facade, s string) (any, error)) CallFunc {
	return func(f *Facade, args []any) (any, error) {
		s, err := argString(name, args, 0)
		if err != nil {
			return nil, err
		}
		return fn(f, s)
	}
}

func withHandleString(name string, fn func(f *Facade, h any, s string) (any, error)) CallFunc {
	return func(f *Facade, args []any) (any, error) {
		h, err := argHandle(name, args, 0)
		if err != nil {
			return nil, err
		}
		s, err := argString(name, args, 1)
		if err != nil {
			return nil, err
		}
		return fn(f, h, s)
	}
}

func setter(name string, prop Property, value func(string, []any, int) (any, error)) CallFunc {
	return func(f *Facade, args []any) (any, error) {
		h, err := argHandle(name, args, 0)
		if err != nil {
			return nil, err
		}
		v, err := value(name, args, 1)
		if err != nil {
			return nil, err
		}
		return nil, f.Set(h, prop, v)
	}
}
