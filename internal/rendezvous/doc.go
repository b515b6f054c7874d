// Package rendezvous implements the server half of the reverse TCP
// port-forwarder's rendezvous protocol: the Acceptor that classifies newly
// accepted sockets, the single ControllerSession that carries LISTEN/CLOSE/
// OPEN, the Tunnel registry and its per-tunnel accept loops, and the Pending
// table that correlates an externally-accepted socket with the data channel
// the client opens in response to OPEN.
//
// Usage:
//  1. Construct a Server with NewServer.
//  2. Call Serve with a listener bound to the control port; it blocks,
//     dispatching each accepted connection to either the controller path or
//     a data-channel path.
//  3. The controller drives the Tunnel registry via LISTEN/CLOSE; each
//     tunnel's accept loop allocates a session ID, enqueues a pending entry,
//     and notifies the controller with OPEN.
//  4. Call Shutdown to close all tunnels, the controller, and any pending
//     sockets still awaiting pairing.
package rendezvous
