package rfclient

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleListIsEmptyMessageThenShowsMappings(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		r := bufio.NewReader(conn)
		for {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
		}
	}()

	ctrl, err := Dial(ln.Addr().String(), NewMappingRegistry(DefaultMaxMappings))
	require.NoError(t, err)
	defer ctrl.Shutdown()

	in := strings.NewReader("list\nadd 8080 127.0.0.1 80\nlist\nexit\n")
	var out bytes.Buffer
	RunConsole(ctrl, in, &out)

	text := out.String()
	assert.Contains(t, text, "No mappings")
	assert.Contains(t, text, "server:8080 -> 127.0.0.1:80")
}

func TestConsoleUnknownCommandShowsUsage(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	ctrl, err := Dial(ln.Addr().String(), NewMappingRegistry(DefaultMaxMappings))
	require.NoError(t, err)
	defer ctrl.Shutdown()

	in := strings.NewReader("bogus\nexit\n")
	var out bytes.Buffer
	RunConsole(ctrl, in, &out)

	assert.Contains(t, out.String(), "Unknown. Commands:")
}

func TestConsoleAddUsageOnBadArgs(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	ctrl, err := Dial(ln.Addr().String(), NewMappingRegistry(DefaultMaxMappings))
	require.NoError(t, err)
	defer ctrl.Shutdown()

	in := strings.NewReader("add 8080\nexit\n")
	var out bytes.Buffer
	RunConsole(ctrl, in, &out)

	assert.Contains(t, out.String(), "Usage: add <server_port> <client_addr> <client_port>")
}
