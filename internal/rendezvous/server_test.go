package rendezvous

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revtun/internal/wire"
)

func startTestServer(t *testing.T) (s *Server, ctrlAddr string) {
	t.Helper()
	s = NewServer(DefaultMaxTunnels)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	t.Cleanup(func() {
		ln.Close()
		s.Shutdown()
	})
	return s, ln.Addr().String()
}

// fakeController dials the control port and provides line-oriented helpers,
// standing in for the client's Controller for server-side tests.
type fakeController struct {
	conn net.Conn
	r    *bufio.Reader
}

func dialController(t *testing.T, addr string) *fakeController {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return &fakeController{conn: conn, r: bufio.NewReader(conn)}
}

func (f *fakeController) send(line string) {
	io.WriteString(f.conn, line)
}

func (f *fakeController) readLine(t *testing.T) string {
	t.Helper()
	f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := f.r.ReadString('\n')
	require.NoError(t, err)
	return line[:len(line)-1]
}

func TestListenThenExternalConnectTriggersOpen(t *testing.T) {
	s, addr := startTestServer(t)
	ctrl := dialController(t, addr)

	tunnelPort := freePort(t)
	ctrl.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))

	// Give the tunnel a moment to bind before connecting externally.
	waitForListening(t, s, tunnelPort)

	ext, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tunnelPort))
	require.NoError(t, err)
	defer ext.Close()

	line := ctrl.readLine(t)
	sid, port, ok := wire.ParseOpen(line)
	require.True(t, ok, "expected an OPEN line, got %q", line)
	assert.Equal(t, tunnelPort, port)
	assert.Greater(t, sid, int64(0))
}

func TestDataChannelPairsWithPendingExternal(t *testing.T) {
	s, addr := startTestServer(t)
	ctrl := dialController(t, addr)

	tunnelPort := freePort(t)
	ctrl.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))
	waitForListening(t, s, tunnelPort)

	ext, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tunnelPort))
	require.NoError(t, err)
	defer ext.Close()

	line := ctrl.readLine(t)
	sid, _, ok := wire.ParseOpen(line)
	require.True(t, ok)

	data, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	io.WriteString(data, wire.FormatData(sid))

	_, err = data.Write([]byte("hello"))
	require.NoError(t, err)
	buf := make([]byte, 5)
	ext.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(ext, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestDataWithNoPendingClosesSocket(t *testing.T) {
	_, addr := startTestServer(t)
	data, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	io.WriteString(data, wire.FormatData(999999))

	data.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = data.Read(buf)
	assert.ErrorIs(t, err, io.EOF, "server must close a DATA connection with no matching pending session")
}

func TestControllerReplacementClosesPrevious(t *testing.T) {
	s, addr := startTestServer(t)
	a := dialController(t, addr)
	a.send("\n") // any non-DATA first line makes a the controller

	// Wait for a to actually become the controller before connecting b.
	for i := 0; i < 100 && s.snapshotController() == nil; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	require.NotNil(t, s.snapshotController())

	b := dialController(t, addr)
	tunnelPort := freePort(t)
	b.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))

	a.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err := a.conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF, "installing a new controller must close the previous one")

	waitForListening(t, s, tunnelPort)
	assert.True(t, s.Registry.Has(tunnelPort))
}

func TestListenOnAlreadyBoundPortIsNoopAndRegistryStaysClean(t *testing.T) {
	s, addr := startTestServer(t)
	ctrl := dialController(t, addr)

	tunnelPort := freePort(t)
	ctrl.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))
	waitForListening(t, s, tunnelPort)
	ctrl.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, s.Registry.Count())
	ports := s.Registry.Ports()
	require.Len(t, ports, 1)
	assert.Equal(t, tunnelPort, ports[0])
}

func TestCloseStopsAcceptingNewConnections(t *testing.T) {
	s, addr := startTestServer(t)
	ctrl := dialController(t, addr)

	tunnelPort := freePort(t)
	ctrl.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))
	waitForListening(t, s, tunnelPort)

	ctrl.send(wire.FormatClose(tunnelPort))
	for i := 0; i < 100 && s.Registry.Has(tunnelPort); i++ {
		time.Sleep(10 * time.Millisecond)
	}
	assert.False(t, s.Registry.Has(tunnelPort))

	_, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tunnelPort))
	assert.Error(t, err, "no new connection should be acceptable on a closed tunnel port")
}

func TestSessionIDsAreMonotonicAndUnique(t *testing.T) {
	s, addr := startTestServer(t)
	ctrl := dialController(t, addr)

	tunnelPort := freePort(t)
	ctrl.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))
	waitForListening(t, s, tunnelPort)

	var sids []int64
	for i := 0; i < 5; i++ {
		ext, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tunnelPort))
		require.NoError(t, err)
		defer ext.Close()
		line := ctrl.readLine(t)
		sid, _, ok := wire.ParseOpen(line)
		require.True(t, ok)
		sids = append(sids, sid)
	}
	seen := map[int64]bool{}
	for i, sid := range sids {
		assert.False(t, seen[sid], "session id %d repeated", sid)
		seen[sid] = true
		if i > 0 {
			assert.Greater(t, sid, sids[i-1])
		}
	}
}

func TestServerStatusReflectsTunnelsAndPending(t *testing.T) {
	s, addr := startTestServer(t)
	ctrl := dialController(t, addr)

	tunnelPort := freePort(t)
	ctrl.send(wire.FormatListen(tunnelPort, "127.0.0.1", 80))
	waitForListening(t, s, tunnelPort)

	ext, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tunnelPort))
	require.NoError(t, err)
	defer ext.Close()
	ctrl.readLine(t) // consume the OPEN line; leaves the session pending

	st := s.Status()
	assert.Equal(t, []int{tunnelPort}, st.Ports)
	assert.Equal(t, 1, st.PendingSessions)
	assert.True(t, st.ControllerConnected)
	assert.Equal(t, int64(1), st.SessionsIssued)
}

// waitForListening polls the registry rather than dialing the port: a probe
// connection would itself be accepted as an external session and emit an
// OPEN. Registry.Start records a tunnel only after its listener is bound.
func waitForListening(t *testing.T, s *Server, port int) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if s.Registry.Has(port) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("tunnel on port %d never started listening", port)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
