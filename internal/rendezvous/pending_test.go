package rendezvous

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTablePushPop(t *testing.T) {
	tbl := NewPendingTable()
	a, b := net.Pipe()
	defer b.Close()

	tbl.Push(&PendingSession{SID: 1, Conn: a, Port: 9000})
	assert.Equal(t, 1, tbl.Len())

	got, ok := tbl.Pop(1)
	require.True(t, ok)
	assert.Equal(t, a, got.Conn)
	assert.Equal(t, 0, tbl.Len())

	_, ok = tbl.Pop(1)
	assert.False(t, ok, "a popped session must never be returned again")
}

func TestPendingTablePopMissing(t *testing.T) {
	tbl := NewPendingTable()
	_, ok := tbl.Pop(42)
	assert.False(t, ok)
}

func TestPendingTableCloseAll(t *testing.T) {
	tbl := NewPendingTable()
	a, b := net.Pipe()
	tbl.Push(&PendingSession{SID: 1, Conn: a, Port: 9000})

	tbl.CloseAll()
	assert.Equal(t, 0, tbl.Len())

	buf := make([]byte, 1)
	_, err := b.Read(buf)
	assert.Error(t, err, "CloseAll must close every pending socket")
}
