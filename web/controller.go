package web

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/dawscript-go/host"
)

// Controller runs the bridge alongside an optional inner controller. The
// bridge starts with the script, stops with it and is ticked from every host
// callback.
type Controller struct {
	Inner  any
	Server *Server
	// ServiceName prefixes the URLs displayed on start. Empty displays
	// nothing.
	ServiceName string
}

var (
	_ host.ConfigProvider = (*Controller)(nil)
	_ host.ScriptStarter  = (*Controller)(nil)
	_ host.ScriptStopper  = (*Controller)(nil)
	_ host.ProjectLoader  = (*Controller)(nil)
	_ host.MIDIHandler    = (*Controller)(nil)
)

func (c *Controller) Config() host.Config {
	if inner, ok := c.Inner.(host.ConfigProvider); ok {
		return inner.Config()
	}
	return host.AllMIDIInputs
}

func (c *Controller) OnScriptStart(f *host.Facade) error {
	urls, err := c.Server.Start(f)
	if err != nil {
		if c.ServiceName != "" {
			f.Display(fmt.Sprintf("%s error: %v", c.ServiceName, err))
		}
	} else if c.ServiceName != "" {
		for _, u := range urls {
			f.Display(fmt.Sprintf("%s @ %s", c.ServiceName, u))
		}
	}

	if inner, ok := c.Inner.(host.ScriptStarter); ok {
		return errors.Join(err, inner.OnScriptStart(f))
	}
	return err
}

func (c *Controller) OnScriptStop() error {
	defer c.Server.Stop()
	if inner, ok := c.Inner.(host.ScriptStopper); ok {
		return inner.OnScriptStop()
	}
	return nil
}

func (c *Controller) OnProjectLoad() error {
	c.Server.ForgetListeners()
	if inner, ok := c.Inner.(host.ProjectLoader); ok {
		return inner.OnProjectLoad()
	}
	return nil
}

func (c *Controller) HostCallback(midi [][]byte) error {
	c.Server.Tick()
	if inner, ok := c.Inner.(host.MIDIHandler); ok {
		return inner.HostCallback(midi)
	}
	return nil
}
