package rfclient

import (
	"io"
	"log"
	"net"

	"revtun/internal/wire"
)

// Controller maintains the client's single outward connection to the
// server's control port. It sends LISTEN/CLOSE lines and dispatches OPEN
// notifications read off the same connection to an Opener.
type Controller struct {
	conn       net.Conn
	serverAddr string // host:port the data channel and control channel both dial
	Mappings   *MappingRegistry
	Opener     *Opener
}

// Dial connects to the server's control port and returns a Controller ready
// to Run.
func Dial(serverAddr string, mappings *MappingRegistry) (*Controller, error) {
	conn, err := net.Dial("tcp", serverAddr)
	if err != nil {
		return nil, err
	}
	c := &Controller{conn: conn, serverAddr: serverAddr, Mappings: mappings}
	c.Opener = &Opener{serverAddr: serverAddr, mappings: mappings}
	return c, nil
}

// Run reads lines from the controller connection until it closes,
// dispatching each OPEN to the Session opener. It returns when the
// connection is closed by the server or otherwise errors.
func (c *Controller) Run() {
	lr := wire.NewLineReader(c.conn)
	for {
		line, err := lr.ReadLine()
		if err != nil {
			log.Printf("[ctrl] control connection closed: %v", err)
			return
		}
		sid, port, ok := wire.ParseOpen(line)
		if !ok {
			log.Printf("[ctrl] ignoring unrecognized line from server: %q", line)
			continue
		}
		log.Printf("[ctrl] OPEN sid=%d server_port=%d", sid, port)
		go c.Opener.HandleOpen(sid, port)
	}
}

// Listen sends "LISTEN <port> <clientAddr> <clientPort>\n" on the control
// channel and records the mapping locally, in the same step, so a
// subsequent OPEN for this port can be resolved.
func (c *Controller) Listen(port int, clientAddr string, clientPort int) error {
	if err := c.Mappings.Add(port, clientAddr, clientPort); err != nil {
		return err
	}
	if _, err := io.WriteString(c.conn, wire.FormatListen(port, clientAddr, clientPort)); err != nil {
		c.Mappings.Remove(port)
		return err
	}
	return nil
}

// Close sends "CLOSE <port>\n" on the control channel and removes the local
// mapping.
func (c *Controller) Close(port int) error {
	_, err := io.WriteString(c.conn, wire.FormatClose(port))
	c.Mappings.Remove(port)
	return err
}

// Shutdown closes the underlying control connection.
func (c *Controller) Shutdown() {
	c.conn.Close()
}
