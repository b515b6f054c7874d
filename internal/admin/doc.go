// Package admin implements revtun's operator-facing surface: an SSH console
// for read-only introspection, an HTTPS status/metrics endpoint, and a
// websocket feed of rendezvous events. The control and data channels the
// rendezvous protocol runs over stay deliberately unauthenticated and
// unencrypted; the admin surface is a third, independent channel for
// operators, not tunnel traffic, and carries its own auth and TLS.
package admin
