package relay

import "sync"

// BufferPoolSize is the size of each buffer in the pool, well above the
// protocol's 4 KiB minimum relay buffer requirement.
const BufferPoolSize = 32 * 1024

// bufferPool is a pool of reusable byte slices for relay I/O, avoiding an
// allocation per direction per session.
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, BufferPoolSize)
		return &buf
	},
}

func getBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

func putBuffer(buf *[]byte) {
	bufferPool.Put(buf)
}
