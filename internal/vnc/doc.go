// Package vnc persists the list of VNC servers offered by the remote-control
// view.
//
// The list is a JSON array stored in a single file. The first Load on a
// machine with no file writes a default entry pointing at port 5900 on the
// host's first non-loopback IPv4 address.
package vnc
