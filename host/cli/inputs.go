package cli

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const rescanInterval = time.Second

// excluded ports are never connected automatically.
var excluded = []string{"Midi Through", "Through Port"}

// Inputs keeps every accepted MIDI input port connected, picking up ports
// that appear later. Messages arrive on driver goroutines and wait in a
// queue until Drain.
type Inputs struct {
	drv    drivers.Driver
	log    logrus.FieldLogger
	now    func() time.Time
	config host.Config

	ports    map[string]func()
	lastScan time.Time

	mu    sync.Mutex
	queue [][]byte
}

func NewInputs(drv drivers.Driver, log logrus.FieldLogger) *Inputs {
	return &Inputs{
		drv:    drv,
		log:    log,
		now:    time.Now,
		config: host.AllMIDIInputs,
		ports:  make(map[string]func()),
	}
}

// SetConfig selects the ports to connect. It takes effect on the next scan.
func (in *Inputs) SetConfig(cfg host.Config) {
	in.config = cfg
	in.lastScan = time.Time{}
}

// Rescan connects new ports and forgets vanished ones, at most once per
// rescanInterval.
func (in *Inputs) Rescan() {
	now := in.now()
	if !in.lastScan.IsZero() && now.Sub(in.lastScan) < rescanInterval {
		return
	}
	in.lastScan = now

	ports, err := in.drv.Ins()
	if err != nil {
		in.log.WithError(err).Error("list midi inputs failed")
		return
	}

	present := make(map[string]bool)
	for _, port := range ports {
		name := port.String()
		if !in.accepts(name) {
			continue
		}
		present[name] = true
		if _, ok := in.ports[name]; ok {
			continue
		}
		if err := in.open(port); err != nil {
			in.log.WithError(err).WithField("port", name).Error("connect failed")
		}
	}

	for name, stop := range in.ports {
		if !present[name] {
			stop()
			delete(in.ports, name)
			in.log.WithField("port", name).Warn("midi input disappeared")
		}
	}
}

func (in *Inputs) accepts(name string) bool {
	for _, pat := range excluded {
		if strings.Contains(strings.ToLower(name), strings.ToLower(pat)) {
			return false
		}
	}
	return in.config.AcceptsInput(name)
}

func (in *Inputs) open(port drivers.In) error {
	name := port.String()
	if !port.IsOpen() {
		if err := port.Open(); err != nil {
			return fmt.Errorf("open %q: %w", name, err)
		}
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		in.push(msg.Bytes())
	}, midi.HandleError(func(err error) {
		in.log.WithError(err).WithField("port", name).Warn("midi listener error")
	}))
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	in.ports[name] = func() {
		stop()
		_ = port.Close()
	}
	in.log.WithField("port", name).Info("midi input connected")
	return nil
}

func (in *Inputs) push(msg []byte) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.queue = append(in.queue, append([]byte(nil), msg...))
}

// Drain returns the messages received since the previous call.
func (in *Inputs) Drain() [][]byte {
	in.mu.Lock()
	defer in.mu.Unlock()
	msgs := in.queue
	in.queue = nil
	return msgs
}

// Connected returns the names of the connected ports.
func (in *Inputs) Connected() []string {
	names := make([]string, 0, len(in.ports))
	for name := range in.ports {
		names = append(names, name)
	}
	return names
}

// Close disconnects every port.
func (in *Inputs) Close() {
	for name, stop := range in.ports {
		stop()
		delete(in.ports, name)
	}
}
