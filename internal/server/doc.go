// Package server wires printdesk's HTTP surface.
//
// Routes:
//
//	GET    /                          file-management view (shell)
//	GET    /vnc                       VNC view (shell)
//	GET    /assets/*                  embedded bundle files
//	GET    /files                     list uploads
//	POST   /files                     upload (multipart field "file")
//	GET    /files/{filename}          download
//	DELETE /files/{filename}          delete
//	POST   /print                     print a stored file
//	POST   /preopen                   open a stored file in the desktop viewer
//	GET    /api/vnc/connections       list saved VNC servers
//	POST   /api/vnc/connections       add one
//	PUT    /api/vnc/connections/{i}   replace one
//	DELETE /api/vnc/connections/{i}   delete one
//	GET    /api/routes                route table
//	GET    /websockify                WebSocket to TCP relay
//	GET    /healthz
//	GET    /metrics
//
// Any other GET renders the shell with status 404 so the front-end can show
// its not-found view. Errors from API routes are JSON objects with "error"
// and "code" keys.
package server
