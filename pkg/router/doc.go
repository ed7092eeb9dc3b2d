// Package router maps request paths to lazily loaded page components.
//
// The route table is a static, ordered list. A path resolves to the first
// route, in declaration order, whose pattern matches it. Patterns support
// static segments, named parameters (:id) and a trailing catch-all (*rest):
//
//	/                 → only the root
//	/vnc              → exactly /vnc
//	/files/:name      → /files/report.pdf (name = "report.pdf")
//	/docs/*path       → /docs/a/b (path = "a/b")
//
// # Lazy Loading
//
// Each route carries a Loader. The loader runs the first time the route is
// resolved and its result is kept for the life of the Router, so a loader
// that succeeds is invoked exactly once. Concurrent first resolutions share
// one load. A failed load is not kept; the error is returned wrapped in a
// *LoadError and the next resolution tries again.
//
// # Not Found
//
// Paths that match no route resolve to the not-found route with
// Resolution.NotFound set. The default not-found route is named "not-found"
// and titled 页面未找到.
//
// # Usage
//
//	manifest, _ := assets.LoadFS(frontend.Dist, assets.ManifestPath)
//	r, err := router.New(router.DefaultRoutes(router.ManifestLoader(manifest, "/")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := r.Resolve(ctx, "/vnc")
//	// res.Title == "VNC远程控制"
//	// res.Component.Script == "/assets/VncView-1a2b3c.js"
package router
