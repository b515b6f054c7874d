package rendezvous

import (
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"revtun/internal/relay"
	"revtun/internal/wire"
)

// Server holds all shared rendezvous state: the Tunnel registry, the
// Pending table, the session ID counter, and the single current controller
// socket. It is constructed once and handed (not copied) to every spawned
// task.
type Server struct {
	Registry *Registry
	Pending  *PendingTable
	Metrics  Metrics
	Events   EventSink

	sessionCounter atomic.Int64

	ctrlMu sync.Mutex
	ctrl   net.Conn
}

// NewServer constructs a Server with the given tunnel capacity. Metrics and
// Events default to no-ops; set them before calling Serve to wire in the
// admin surface.
func NewServer(maxTunnels int) *Server {
	return &Server{
		Registry: NewRegistry(maxTunnels),
		Pending:  NewPendingTable(),
		Metrics:  NopMetrics{},
		Events:   NopEventSink{},
	}
}

// Serve accepts connections on ln until it errors (for example when the
// caller closes ln; Shutdown does not close it), dispatching each to the
// controller or data-channel path. A
// non-nil return means the listener itself failed, which is the one error
// worth surfacing to main rather than handling per-connection.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.dispatch(conn)
	}
}

// Shutdown closes every tunnel, every pending socket, and the current
// controller (if any). Relay workers already paired are left to drain or
// exit on their own I/O errors rather than being torn down here.
func (s *Server) Shutdown() {
	s.Registry.CloseAll()
	s.Pending.CloseAll()
	if ctrl := s.snapshotController(); ctrl != nil {
		ctrl.Close()
	}
}

// dispatch classifies a newly accepted connection by its first line and
// routes it to the data-channel or controller path.
func (s *Server) dispatch(conn net.Conn) {
	lr := wire.NewLineReader(conn)
	line, err := lr.ReadLine()
	if err != nil {
		conn.Close()
		return
	}

	if wire.ClassifyFirstLine(line) == wire.KindData {
		s.handleDataLine(conn, line)
		return
	}

	// Everything else becomes the controller - including a line that
	// happens to parse as LISTEN/CLOSE: that same first line is both the
	// classification line *and*, since it parses as a command, the first
	// command the new controller executes.
	s.installController(conn)
	log.Printf("[ctrl] connected from %s", conn.RemoteAddr())
	s.Metrics.ControllerConnected()
	s.Events.Publish(Event{Kind: "controller_connected"})
	s.handleControlLine(conn, line)
	s.runController(conn, lr)
}

// handleDataLine pops the pending session named by a "DATA <sid>" line and
// pairs it with conn, or closes conn if there is no matching pending entry.
func (s *Server) handleDataLine(conn net.Conn, line string) {
	sid, ok := wire.ParseData(line)
	if !ok {
		log.Printf("[data] malformed line %q", line)
		conn.Close()
		return
	}
	pending, ok := s.Pending.Pop(sid)
	if !ok {
		log.Printf("[data sid=%d] no pending session, closing", sid)
		conn.Close()
		return
	}
	log.Printf("[data sid=%d] paired with external socket on port %d", sid, pending.Port)
	s.Metrics.SessionPaired(pending.Port)
	s.Events.Publish(Event{Kind: "paired", SID: sid, Port: pending.Port})

	relay.Pair(pending.Conn, conn, func(r relay.Result) {
		dirName := "external->data"
		if r.Direction == relay.BToA {
			dirName = "data->external"
		}
		s.Metrics.BytesRelayed(dirName, r.Bytes)
	})
}

// handleControlLine dispatches one line read on the controller socket.
// Unknown commands are logged and ignored, never fatal.
func (s *Server) handleControlLine(conn net.Conn, line string) {
	if line == "" {
		return
	}
	if port, ok := wire.ParseListen(line); ok {
		s.handleListen(port)
		return
	}
	if port, ok := wire.ParseClose(line); ok {
		s.handleClose(port)
		return
	}
	log.Printf("[ctrl] unknown command: %q", line)
}

func (s *Server) handleListen(port int) {
	err := s.Registry.Start(port, s.handleExternalAccept)
	if err != nil {
		log.Printf("[ctrl] LISTEN %d failed: %v", port, err)
		return
	}
	log.Printf("[ctrl] started tunnel on port %d", port)
	s.Metrics.TunnelStarted(port)
	s.Events.Publish(Event{Kind: "listen", Port: port})
}

func (s *Server) handleClose(port int) {
	if err := s.Registry.Stop(port); err != nil {
		log.Printf("[ctrl] CLOSE %d failed: %v", port, err)
		return
	}
	log.Printf("[ctrl] stopped tunnel on port %d", port)
	s.Metrics.TunnelStopped(port)
	s.Events.Publish(Event{Kind: "close", Port: port})
}

// handleExternalAccept is the Tunnel acceptor action for each externally
// accepted connection: allocate a session ID, enqueue a pending entry, then
// notify the current controller with OPEN.
func (s *Server) handleExternalAccept(conn net.Conn, port int) {
	sid := s.sessionCounter.Add(1)
	s.Pending.Push(&PendingSession{SID: sid, Conn: conn, Port: port})
	s.Metrics.SessionAccepted(port)

	// The controller socket is snapshotted under lock and used outside it:
	// a concurrent controller replacement can race this send, in which case
	// the send fails against a closed descriptor. That is benign and
	// log-only - the pending entry is left in place (no OPEN is resent for
	// it) until a DATA line for its sid arrives or Shutdown reaps it.
	ctrl := s.snapshotController()
	if ctrl == nil {
		s.Pending.Remove(sid)
		conn.Close()
		log.Printf("[tunnel %d] no controller, dropped incoming sid=%d", port, sid)
		s.Metrics.SessionDropped(port, "no_controller")
		return
	}

	if _, err := io.WriteString(ctrl, wire.FormatOpen(sid, port)); err != nil {
		log.Printf("[tunnel %d] failed to notify controller of sid=%d: %v", port, sid, err)
		return
	}
	s.Events.Publish(Event{Kind: "open", SID: sid, Port: port})
}

// runController reads subsequent command lines from the controller
// connection until it errs or the controller is displaced, then clears the
// controller slot. It does not close any tunnels: a controller disconnect
// clears the slot but leaves tunnels running so they can continue accepting
// (and dropping, for lack of a controller) until a new controller connects.
func (s *Server) runController(conn net.Conn, lr *wire.LineReader) {
	defer func() {
		s.clearController(conn)
		conn.Close()
		log.Printf("[ctrl] disconnected")
		s.Metrics.ControllerDisconnected()
		s.Events.Publish(Event{Kind: "controller_disconnected"})
	}()

	for {
		line, err := lr.ReadLine()
		if err != nil {
			return
		}
		s.handleControlLine(conn, line)
	}
}

// snapshotController returns the current controller connection, or nil.
func (s *Server) snapshotController() net.Conn {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	return s.ctrl
}

// installController makes conn the current controller, force-closing
// whichever controller was previously active - only one controller may be
// active at a time.
func (s *Server) installController(conn net.Conn) {
	s.ctrlMu.Lock()
	old := s.ctrl
	s.ctrl = conn
	s.ctrlMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// clearController removes conn as the current controller, but only if it is
// still the current one - a displaced controller's own cleanup must not
// clobber whatever controller has since taken its place.
func (s *Server) clearController(conn net.Conn) {
	s.ctrlMu.Lock()
	if s.ctrl == conn {
		s.ctrl = nil
	}
	s.ctrlMu.Unlock()
}

// Status is a read-only snapshot of server state, for the admin surface
// (internal/admin). It never blocks relay or control-line processing beyond
// the brief locks each field read already takes.
type Status struct {
	Ports               []int
	PendingSessions     int
	ControllerConnected bool
	SessionsIssued      int64
}

// Status reports a point-in-time snapshot of tunnel, pending, and controller
// state for read-only introspection.
func (s *Server) Status() Status {
	return Status{
		Ports:               s.Registry.Ports(),
		PendingSessions:     s.Pending.Len(),
		ControllerConnected: s.snapshotController() != nil,
		SessionsIssued:      s.sessionCounter.Load(),
	}
}
