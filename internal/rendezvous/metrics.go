package rendezvous

// Metrics receives lifecycle counters from the rendezvous core. Every method
// must not block and must be safe for concurrent use. A Server with no
// Metrics configured falls back to NopMetrics.
type Metrics interface {
	TunnelStarted(port int)
	TunnelStopped(port int)
	SessionAccepted(port int)
	SessionPaired(port int)
	SessionDropped(port int, reason string)
	ControllerConnected()
	ControllerDisconnected()
	BytesRelayed(direction string, n int64)
}

// NopMetrics discards every observation. It is the Server default so call
// sites never need a nil check.
type NopMetrics struct{}

func (NopMetrics) TunnelStarted(int)          {}
func (NopMetrics) TunnelStopped(int)          {}
func (NopMetrics) SessionAccepted(int)        {}
func (NopMetrics) SessionPaired(int)          {}
func (NopMetrics) SessionDropped(int, string) {}
func (NopMetrics) ControllerConnected()       {}
func (NopMetrics) ControllerDisconnected()    {}
func (NopMetrics) BytesRelayed(string, int64) {}

// Event is one notable occurrence in the rendezvous protocol, published to
// an EventSink for operator-facing tooling (the admin live feed). Event is
// not part of the wire protocol itself.
type Event struct {
	Kind string // "listen", "close", "open", "paired", "controller_connected", "controller_disconnected"
	SID  int64
	Port int
	Note string
}

// EventSink receives Events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// NopEventSink discards every event. It is the Server default.
type NopEventSink struct{}

func (NopEventSink) Publish(Event) {}
