// Package frontend embeds the built single-page front-end.
//
// dist/ is produced by "printdesk build" (vite build with manifest output).
// The checked-in copy is a placeholder bundle with the same manifest layout
// and inert view chunks; run "printdesk init" and "printdesk build" to
// replace it with the real front-end.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var dist embed.FS

// FS returns the build output rooted at dist/.
func FS() fs.FS {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
