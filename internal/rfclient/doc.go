// Package rfclient implements the client half of the reverse TCP
// port-forwarder: the Controller that dials out to the server and drives
// LISTEN/CLOSE/OPEN, the Mapping registry of exposed-server-port to private
// target, and the Opener that, on each OPEN, dials the two fresh outbound
// sockets (data channel and private target) and hands them to the shared
// relay package.
package rfclient
