// Package rfb describes the remote-framebuffer session client used by the
// VNC view and manages the one-client-per-view ownership rule.
//
// Client is the contract: disconnect, viewport scaling and event
// subscription. A Factory builds clients from a target container, an
// endpoint and Options. Sessions owns at most one client per view and
// disconnects it when the view unmounts or is mounted again.
//
// Dial is a transport-level Client: it opens the websockify endpoint with the
// "binary" sub-protocol, reports the server's version banner and raises
// connect and disconnect events. It stops at the banner; the remote
// framebuffer protocol itself is out of its scope.
//
//	c, err := rfb.Dial(ctx, "ws://kiosk/websockify?host=10.0.0.5:5900", rfb.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c.AddEventListener(rfb.EventServerVersion, func(e rfb.Event) {
//	    fmt.Println(e.Detail)
//	})
package rfb
