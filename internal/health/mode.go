package health

import "net/url"

// Mode selects the response shape. The zero value is ModeDetailed.
type Mode uint8

const (
	ModeDetailed Mode = iota
	ModeSimple
	ModeReady
	ModeLive
)

// ModeFromQuery maps presence-only query flags to a Mode. When several flags
// are present the first match wins in the order simple/lb, ready, live.
func ModeFromQuery(q url.Values) Mode {
	switch {
	case q.Has("simple"), q.Has("lb"):
		return ModeSimple
	case q.Has("ready"):
		return ModeReady
	case q.Has("live"):
		return ModeLive
	default:
		return ModeDetailed
	}
}

func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeReady:
		return "ready"
	case ModeLive:
		return "live"
	default:
		return "detailed"
	}
}
