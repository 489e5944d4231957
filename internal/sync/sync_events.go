package sync

import (
	"fmt"
	"strings"

	"DRFashion-Sync/internal/logger"
)

// ProgressSink receives human-readable progress text. A nil sink is silent.
type ProgressSink func(message string)

func (s ProgressSink) emit(message string) {
	if s != nil {
		s(message)
	}
}

// Direction names the source and target of one pass over a table.
type Direction int

const (
	LocalToOnline Direction = iota
	OnlineToLocal
)

func (d Direction) String() string {
	switch d {
	case LocalToOnline:
		return "Local → Online"
	case OnlineToLocal:
		return "Online → Local"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts the CLI spellings local-to-online and online-to-local.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local-to-online", "local_to_online", "up", "push":
		return LocalToOnline, nil
	case "online-to-local", "online_to_local", "down", "pull":
		return OnlineToLocal, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// report sends message to the sink and the log file.
func (s *SyncEngine) report(level string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case "warn":
		logger.Warnf("%s", msg)
	case "error":
		logger.Errorf("%s", msg)
	default:
		logger.Infof("%s", msg)
	}
	s.sink.emit(msg)
}
