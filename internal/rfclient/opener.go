package rfclient

import (
	"io"
	"log"
	"net"
	"strconv"

	"revtun/internal/relay"
	"revtun/internal/wire"
)

// Opener answers each OPEN notification from the controller: it resolves
// the mapping, dials a fresh data channel back to the server, announces the
// session id on it, dials the private target, and relays between the two.
type Opener struct {
	serverAddr string
	mappings   *MappingRegistry
}

// HandleOpen runs the five-step sequence for one OPEN notification. Any
// failure along the way simply closes whatever sockets were opened and
// returns. If the target dial fails after DATA was sent, closing the data
// channel ends the server's relay for that sid; if no DATA line reaches the
// server, its pending entry stays until the server shuts down.
func (o *Opener) HandleOpen(sid int64, serverPort int) {
	mapping, ok := o.mappings.Lookup(serverPort)
	if !ok {
		log.Printf("[open sid=%d] no mapping for server port %d, dropping", sid, serverPort)
		return
	}

	dataConn, err := net.Dial("tcp", o.serverAddr)
	if err != nil {
		log.Printf("[open sid=%d] failed to dial data channel: %v", sid, err)
		return
	}

	if _, err := io.WriteString(dataConn, wire.FormatData(sid)); err != nil {
		log.Printf("[open sid=%d] failed to announce data channel: %v", sid, err)
		dataConn.Close()
		return
	}

	targetAddr := net.JoinHostPort(mapping.ClientAddr, strconv.Itoa(mapping.ClientPort))
	targetConn, err := net.Dial("tcp", targetAddr)
	if err != nil {
		log.Printf("[open sid=%d] failed to dial private target %s: %v", sid, targetAddr, err)
		dataConn.Close()
		return
	}

	log.Printf("[open sid=%d] relaying server_port=%d <-> %s", sid, serverPort, targetAddr)
	relay.Pair(dataConn, targetConn, func(r relay.Result) {
		if r.Err != nil {
			log.Printf("[open sid=%d] relay %v ended: %v (%d bytes)", sid, r.Direction, r.Err, r.Bytes)
		}
	})
}
