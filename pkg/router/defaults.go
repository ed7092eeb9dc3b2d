package router

import (
	"context"
	"errors"
	"strings"

	"github.com/printdesk/printdesk/pkg/assets"
)

// View sources of the default routes.
const (
	FileListView = "src/views/FileList.vue"
	VncView      = "src/views/VncView.vue"
)

// ErrComponentNotBuilt is returned when a view is missing from the build
// manifest.
var ErrComponentNotBuilt = errors.New("router: component not in build manifest")

// SourceLoader turns a view source file into a Loader.
type SourceLoader func(source string) Loader

// DefaultRoutes returns the file-management and VNC routes.
func DefaultRoutes(load SourceLoader) []Route {
	return []Route{
		{
			Path: "/",
			Name: "files",
			Load: load(FileListView),
			Meta: Meta{Title: "文件管理"},
		},
		{
			Path: "/vnc",
			Name: "vnc",
			Load: load(VncView),
			Meta: Meta{Title: "VNC远程控制"},
		},
	}
}

// ManifestLoader resolves view sources through the build manifest. URLs are
// prefixed with base.
func ManifestLoader(m *assets.Manifest, base string) SourceLoader {
	resolver := assets.NewPassthroughResolver(base)
	return func(source string) Loader {
		return func(ctx context.Context) (*Component, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			b, ok := m.Bundle(source)
			if !ok {
				return nil, routeError(ErrComponentNotBuilt, source)
			}
			comp := &Component{
				Source: source,
				Script: resolver.Asset(b.Script),
			}
			for _, imp := range b.Imports {
				comp.Imports = append(comp.Imports, resolver.Asset(imp))
			}
			for _, css := range b.CSS {
				comp.CSS = append(comp.CSS, resolver.Asset(css))
			}
			return comp, nil
		}
	}
}

// StaticLoader returns a loader for an unbundled front-end: the view source
// is served as is.
func StaticLoader(base string) SourceLoader {
	return func(source string) Loader {
		return func(context.Context) (*Component, error) {
			return &Component{
				Source: source,
				Script: strings.TrimSuffix(base, "/") + "/" + source,
			}, nil
		}
	}
}
