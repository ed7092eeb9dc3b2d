package assets

import "strings"

// Resolver provides asset path resolution.
// It combines manifest lookup with path prefixing.
type Resolver interface {
	// Asset resolves a source module or emitted file to its URL path.
	//
	// Example:
	//   resolver.Asset("src/main.ts") → "/assets/main-1a2b3c.js"
	Asset(source string) string
}

// manifestResolver wraps a Manifest to implement Resolver.
type manifestResolver struct {
	manifest *Manifest
	base     string
}

// NewResolver creates a Resolver from a Manifest with a public base path.
// Emitted files already carry their "assets/" directory, so the base is
// normally "/".
func NewResolver(m *Manifest, base string) Resolver {
	return &manifestResolver{
		manifest: m,
		base:     base,
	}
}

func (r *manifestResolver) Asset(source string) string {
	return join(r.base, r.manifest.Resolve(source))
}

// passthrough returns assets unchanged (for unbuilt front-ends).
type passthrough struct {
	base string
}

// NewPassthroughResolver creates a resolver that returns paths unchanged.
func NewPassthroughResolver(base string) Resolver {
	return &passthrough{base: base}
}

func (p *passthrough) Asset(source string) string {
	return join(p.base, source)
}

func join(base, file string) string {
	if base == "" {
		return file
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(file, "/")
}
