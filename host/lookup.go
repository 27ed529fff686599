package host

import "strings"

// TrackByName returns the first track whose name matches case-insensitively.
func (f *Facade) TrackByName(name string) (Track, error) {
	tracks, err := f.Tracks()
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		n, err := f.backend.TrackName(t)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return nil, &NotFoundError{Kind: "Track", Name: name}
}

// TrackPluginByName returns the first plugin on t whose name matches
// case-insensitively.
func (f *Facade) TrackPluginByName(t Track, name string) (Plugin, error) {
	if finder, ok := f.backend.(PluginFinder); ok {
		if err := f.check(t); err != nil {
			return nil, err
		}
		p, err := finder.FindTrackPlugin(t, name)
		if err != nil {
			return nil, err
		}
		f.session.registry.Issue(p)
		return p, nil
	}

	plugins, err := f.TrackPlugins(t)
	if err != nil {
		return nil, err
	}
	for _, p := range plugins {
		n, err := f.backend.PluginName(p)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return nil, &NotFoundError{Kind: "Plugin", Name: name}
}

// PluginParameterByName returns the first parameter of p whose name matches
// case-insensitively.
func (f *Facade) PluginParameterByName(p Plugin, name string) (Parameter, error) {
	params, err := f.PluginParameters(p)
	if err != nil {
		return nil, err
	}
	for _, param := range params {
		n, err := f.backend.ParameterName(param)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(n, name) {
			return param, nil
		}
	}
	return nil, &NotFoundError{Kind: "Parameter", Name: name}
}

// ToggleTrackMute flips the mute state of t. Not atomic: a concurrent
// external change between the read and the write is lost.
func (f *Facade) ToggleTrackMute(t Track) error {
	mute, err := f.IsTrackMute(t)
	if err != nil {
		return err
	}
	return f.SetTrackMute(t, !mute)
}

// ToggleTrackMuteByName flips the mute state of the named track.
func (f *Facade) ToggleTrackMuteByName(name string) error {
	t, err := f.TrackByName(name)
	if err != nil {
		return err
	}
	return f.ToggleTrackMute(t)
}

// TogglePluginEnabled flips the enabled state of p.
func (f *Facade) TogglePluginEnabled(p Plugin) error {
	enabled, err := f.IsPluginEnabled(p)
	if err != nil {
		return err
	}
	return f.SetPluginEnabled(p, !enabled)
}
