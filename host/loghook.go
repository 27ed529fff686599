package host

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// LogHook forwards warnings and errors to the host log, where DAW users look
// for script problems.
type LogHook struct {
	backend Backend
}

// NewLogHook creates a hook writing to backend.Log.
func NewLogHook(backend Backend) *LogHook {
	return &LogHook{backend: backend}
}

func (h *LogHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *LogHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	h.backend.Log(strings.TrimRight(line, "\n"))
	return nil
}
