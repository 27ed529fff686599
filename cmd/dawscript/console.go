package main

import (
	"github.com/Conceptual-Machines/dawscript-go/gadget"
	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/objects"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
)

// console is the built-in controller: it prints the project layout and
// every MIDI message received, and runs the gadgets when a gadget file is
// configured.
type console struct {
	logger  *logrus.Logger
	inputs  []string
	gadgets *gadget.Controller
	facade  *host.Facade
}

func (c *console) Config() host.Config {
	inputs := append([]string(nil), c.inputs...)
	if c.gadgets != nil {
		inputs = append(inputs, c.gadgets.Config().MIDIInputs...)
	}
	return host.Config{MIDIInputs: inputs}
}

func (c *console) OnScriptStart(f *host.Facade) error {
	c.facade = f
	if f.Name() != "cli" {
		c.logger.AddHook(host.NewLogHook(f.Session().Backend()))
	}
	if c.gadgets != nil {
		if err := c.gadgets.OnScriptStart(f); err != nil {
			return err
		}
	}
	c.printTracks()
	return nil
}

func (c *console) OnScriptStop() error {
	c.logger.ReplaceHooks(make(logrus.LevelHooks))
	return nil
}

func (c *console) OnProjectLoad() error {
	c.logger.Info("project loaded")
	c.printTracks()
	return nil
}

func (c *console) HostCallback(batch [][]byte) error {
	for _, b := range batch {
		c.logger.Infof("midi: %s", midi.Message(b))
	}
	if c.gadgets != nil {
		return c.gadgets.HostCallback(batch)
	}
	return nil
}

func (c *console) printTracks() {
	tracks, err := objects.Tracks(c.facade)
	if err != nil {
		c.logger.WithError(err).Warn("list tracks")
		return
	}
	for i, t := range tracks {
		name, _ := t.Name()
		typ, _ := t.Type()
		id, _ := t.StableID()
		c.logger.Infof("track %d: %s (%s) %s", i+1, name, typ, id)
	}
}
