// Package websockify bridges WebSocket clients to TCP servers.
//
// A browser-side remote-framebuffer client cannot open raw TCP sockets, so it
// connects to the proxy over WebSocket and the proxy relays bytes to the VNC
// server:
//
//	GET /websockify?host=10.0.0.5:5900   (Sec-WebSocket-Protocol: binary)
//
// The TCP connection is dialled before the WebSocket upgrade, so an
// unreachable target is reported as 502 Bad Gateway instead of an
// immediately closed socket. Once upgraded, two pumps copy data in each
// direction. Whichever pump stops first tears the session down; teardown
// runs once and closes both ends.
//
// Prometheus metrics (namespace "printdesk", subsystem "websockify"):
//   - active_sessions: gauge of open sessions
//   - sessions_total: counter of upgraded sessions
//   - bytes_total{direction}: bytes relayed, direction is "upstream"
//     (browser to server) or "downstream"
//   - dial_failures_total: counter of failed TCP dials
package websockify
