package admin

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"strings"

	"golang.org/x/crypto/ssh"

	"revtun/internal/rendezvous"
	"revtun/internal/usermgmt"
)

// Status is the read-only rendezvous snapshot the admin surface reports.
type Status = rendezvous.Status

// StatusProvider is the read-only view of rendezvous state the SSH console
// and HTTPS status endpoint query. *rendezvous.Server satisfies it via its
// Status method.
type StatusProvider interface {
	Status() Status
}

// SSHConsole is the admin-only SSH server exposing read-only introspection
// commands (tunnels, pending, sessions). It never forwards ports and never
// touches the rendezvous control/data channels - it serves "session"
// channels running a tiny fixed command set, not direct-tcpip forwarding.
type SSHConsole struct {
	config *ssh.ServerConfig
	status StatusProvider
}

// NewSSHConsole builds an SSHConsole authenticating against db and serving
// hostKeyPath as its host key (generated on first use).
func NewSSHConsole(db *usermgmt.UserDB, hostKeyPath string, status StatusProvider) (*SSHConsole, error) {
	signer, err := loadOrGenerateHostKey(hostKeyPath)
	if err != nil {
		return nil, err
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if db.Authenticate(c.User(), string(password)) {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid credentials")
		},
		BannerCallback: func(ssh.ConnMetadata) string {
			return "revtun admin console\n"
		},
	}
	config.AddHostKey(signer)
	config.ServerVersion = "SSH-2.0-revtun-admin_1.0"

	return &SSHConsole{config: config, status: status}, nil
}

// Serve accepts admin SSH connections on ln until it errors.
func (c *SSHConsole) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go c.handleConn(conn)
	}
}

func (c *SSHConsole) handleConn(conn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, c.config)
	if err != nil {
		conn.Close()
		return
	}
	log.Printf("[admin-ssh] authenticated session from %s as %s", sshConn.RemoteAddr(), sshConn.User())
	go ssh.DiscardRequests(reqs)
	c.serveSessions(chans)
	sshConn.Close()
}

// serveSessions accepts only "session" channels and runs the fixed
// introspection command set over them; "direct-tcpip" and every other
// channel type is rejected.
func (c *SSHConsole) serveSessions(chans <-chan ssh.NewChannel) {
	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "only interactive sessions allowed")
			continue
		}
		ch, requests, err := newChannel.Accept()
		if err != nil {
			log.Printf("[admin-ssh] error accepting channel: %v", err)
			continue
		}
		go c.serveShell(ch, requests)
	}
}

func (c *SSHConsole) serveShell(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	go func() {
		for req := range requests {
			// Accept shell/pty/exec requests so common SSH clients proceed
			// past connection setup; every other request type (env included)
			// is refused. The command loop below runs as soon as the channel
			// is accepted, whichever requests arrive.
			req.Reply(req.Type == "shell" || req.Type == "pty-req" || req.Type == "exec", nil)
		}
	}()

	io.WriteString(ch, "commands: tunnels, pending, sessions, help, exit\n> ")
	scanner := bufio.NewScanner(ch)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "help":
			io.WriteString(ch, "commands: tunnels, pending, sessions, help, exit\n")
		case "tunnels":
			st := c.status.Status()
			if len(st.Ports) == 0 {
				io.WriteString(ch, "no active tunnels\n")
			} else {
				for _, p := range st.Ports {
					fmt.Fprintf(ch, "port %d\n", p)
				}
			}
		case "pending":
			fmt.Fprintf(ch, "%d pending session(s)\n", c.status.Status().PendingSessions)
		case "sessions":
			st := c.status.Status()
			fmt.Fprintf(ch, "controller connected: %v\nsessions issued: %d\n", st.ControllerConnected, st.SessionsIssued)
		case "exit", "quit":
			return
		default:
			fmt.Fprintf(ch, "unknown command: %q\n", line)
		}
		io.WriteString(ch, "> ")
	}
}
