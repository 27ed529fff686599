package gadget

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Action is a facade call bound to a gesture, written in the gadget file as
// "function, arg, arg". Numeric arguments are passed as numbers, anything
// else as strings.
type Action struct {
	Func string
	Args []any
}

// ParseAction parses "toggle_track_mute_by_name, Drums".
func ParseAction(s string) (Action, error) {
	parts := strings.Split(s, ",")
	a := Action{Func: strings.TrimSpace(parts[0])}
	if a.Func == "" {
		return Action{}, errors.New("empty action")
	}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if f, err := strconv.ParseFloat(p, 64); err == nil {
			a.Args = append(a.Args, f)
		} else {
			a.Args = append(a.Args, p)
		}
	}
	return a, nil
}

// Channel is a one based MIDI channel, or omni.
type Channel struct {
	Number uint8
	Omni   bool
}

func (c *Channel) UnmarshalYAML(node *yaml.Node) error {
	if strings.EqualFold(node.Value, "omni") {
		*c = Channel{Omni: true}
		return nil
	}
	n, err := strconv.ParseUint(node.Value, 10, 8)
	if err != nil || n < 1 || n > 16 {
		return fmt.Errorf("line %d: channel must be 1-16 or omni, got %q", node.Line, node.Value)
	}
	*c = Channel{Number: uint8(n)}
	return nil
}

type midiSpec struct {
	Port    string   `yaml:"port"`
	Channel *Channel `yaml:"channel"`
	Press   string   `yaml:"press"`
	Release string   `yaml:"release"`
}

type footswitchSpec struct {
	Name     string            `yaml:"name"`
	MIDI     midiSpec          `yaml:"midi"`
	Gestures map[string]string `yaml:"gestures"`
}

// Binding is a gadget gesture bound to an action.
type Binding struct {
	Gadget *Footswitch
	State  State
	Action Action
}

// Config is a parsed gadget file.
type Config struct {
	Gadgets  []*Footswitch
	Bindings []Binding
	// MIDIInputs lists the ports named by the gadgets. Nil when no gadget
	// names a port, which accepts every input.
	MIDIInputs []string
}

// Load reads a gadget file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gadget file: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes a YAML list of gadgets, each a single-key map from
// the gadget type to its settings. Channel defaults to omni.
func ParseConfig(r io.Reader) (*Config, error) {
	var doc []map[string]yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode gadget file: %w", err)
	}

	cfg := &Config{}
	for i, entry := range doc {
		if len(entry) != 1 {
			return nil, fmt.Errorf("gadget %d: expected a single gadget type", i)
		}
		for typ, node := range entry {
			if typ != "footswitch" {
				return nil, fmt.Errorf("gadget %d: type not supported: %s", i, typ)
			}
			var spec footswitchSpec
			if err := node.Decode(&spec); err != nil {
				return nil, fmt.Errorf("gadget %d: %w", i, err)
			}
			if err := cfg.addFootswitch(spec); err != nil {
				return nil, fmt.Errorf("gadget %d: %w", i, err)
			}
		}
	}
	return cfg, nil
}

func (c *Config) addFootswitch(spec footswitchSpec) error {
	ch := Channel{Omni: true}
	if spec.MIDI.Channel != nil {
		ch = *spec.MIDI.Channel
	}

	fs := NewFootswitch(spec.Name)
	press, err := ParseTrigger(spec.MIDI.Press, ch.Number, ch.Omni)
	if err != nil {
		return fmt.Errorf("press: %w", err)
	}
	fs.MapPress(press)
	if spec.MIDI.Release != "" {
		release, err := ParseTrigger(spec.MIDI.Release, ch.Number, ch.Omni)
		if err != nil {
			return fmt.Errorf("release: %w", err)
		}
		fs.MapRelease(release)
	}

	for name, code := range spec.Gestures {
		state, ok := ParseState(name)
		if !ok {
			return fmt.Errorf("unknown gesture %q", name)
		}
		action, err := ParseAction(code)
		if err != nil {
			return fmt.Errorf("gesture %s: %w", name, err)
		}
		c.Bindings = append(c.Bindings, Binding{Gadget: fs, State: state, Action: action})
	}

	c.Gadgets = append(c.Gadgets, fs)
	if spec.MIDI.Port != "" {
		c.MIDIInputs = append(c.MIDIInputs, spec.MIDI.Port)
	}
	return nil
}

// Controller runs the gadgets of a Config against the facade.
type Controller struct {
	cfg    *Config
	facade *host.Facade
	log    logrus.FieldLogger
}

var (
	_ host.ConfigProvider = (*Controller)(nil)
	_ host.ScriptStarter  = (*Controller)(nil)
	_ host.MIDIHandler    = (*Controller)(nil)
)

func NewController(cfg *Config, log logrus.FieldLogger) *Controller {
	c := &Controller{cfg: cfg, log: log.WithField("component", "gadget")}
	for _, b := range cfg.Bindings {
		b.Gadget.On(b.State, func() { c.run(b) })
	}
	return c
}

func (c *Controller) Config() host.Config {
	return host.Config{MIDIInputs: c.cfg.MIDIInputs}
}

func (c *Controller) OnScriptStart(f *host.Facade) error {
	c.facade = f
	return nil
}

func (c *Controller) HostCallback(midi [][]byte) error {
	for _, g := range c.cfg.Gadgets {
		g.Process(midi)
	}
	return nil
}

func (c *Controller) run(b Binding) {
	log := c.log.WithFields(logrus.Fields{"gadget": b.Gadget.Name, "gesture": b.State.String(), "func": b.Action.Func})
	if c.facade == nil {
		log.Warn("gesture before script start")
		return
	}
	if _, err := c.facade.Call(b.Action.Func, b.Action.Args...); err != nil {
		log.WithError(err).Warn("gesture action failed")
		return
	}
	log.Debug("gesture action")
}
