// Package assets provides runtime resolution of bundled front-end assets.
//
// The bundler writes a manifest (.vite/manifest.json) mapping each source
// module to the chunk it was emitted as:
//
//	{
//	  "src/views/FileList.vue": {
//	    "file": "assets/FileList-4f1c2b.js",
//	    "src": "src/views/FileList.vue",
//	    "isDynamicEntry": true,
//	    "imports": ["_vendor-a1b2c3.js"],
//	    "css": ["assets/FileList-9e8d7c.css"]
//	  }
//	}
//
// This package loads that manifest and answers which script, stylesheets and
// preloaded imports a source module needs:
//
//	manifest, _ := assets.LoadFS(frontend.Dist, ".vite/manifest.json")
//	bundle, ok := manifest.Bundle("src/views/VncView.vue")
//	// bundle.Script == "assets/VncView-1a2b3c.js"
package assets

import (
	"encoding/json"
	"io/fs"
	"os"
	"sort"
	"sync"
)

// ManifestPath is where the bundler writes the manifest, relative to the
// output directory.
const ManifestPath = ".vite/manifest.json"

// Chunk is one manifest entry.
type Chunk struct {
	File           string   `json:"file"`
	Name           string   `json:"name,omitempty"`
	Src            string   `json:"src,omitempty"`
	IsEntry        bool     `json:"isEntry,omitempty"`
	IsDynamicEntry bool     `json:"isDynamicEntry,omitempty"`
	Imports        []string `json:"imports,omitempty"`
	DynamicImports []string `json:"dynamicImports,omitempty"`
	CSS            []string `json:"css,omitempty"`
	Assets         []string `json:"assets,omitempty"`
}

// Bundle is everything a page needs to load one module.
type Bundle struct {
	// Script is the module's own chunk file.
	Script string

	// Imports are the chunk files of its static imports, in visit order.
	Imports []string

	// CSS are the stylesheets of the module and its static imports.
	CSS []string
}

// Manifest holds the chunk table. It is safe for concurrent use.
type Manifest struct {
	chunks map[string]Chunk
	mu     sync.RWMutex
}

// NewManifest creates an empty manifest.
// Use Load() to create a manifest from a JSON file.
func NewManifest() *Manifest {
	return &Manifest{
		chunks: make(map[string]Chunk),
	}
}

// Load reads a manifest file from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadFS reads a manifest file from fsys.
func LoadFS(fsys fs.FS, path string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes manifest JSON.
func Parse(data []byte) (*Manifest, error) {
	var chunks map[string]Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = make(map[string]Chunk)
	}
	return &Manifest{chunks: chunks}, nil
}

// Chunk returns the entry for a source module.
func (m *Manifest) Chunk(source string) (Chunk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chunks[source]
	return c, ok
}

// Resolve returns the emitted file for the given source module.
// If not found, returns the original path unchanged.
func (m *Manifest) Resolve(source string) string {
	if c, ok := m.Chunk(source); ok {
		return c.File
	}
	return source
}

// Has returns true if the manifest contains the given source module.
func (m *Manifest) Has(source string) bool {
	_, ok := m.Chunk(source)
	return ok
}

// Set adds or updates an entry in the manifest.
func (m *Manifest) Set(source string, c Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chunks[source] = c
}

// Len returns the number of entries in the manifest.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.chunks)
}

// Keys returns every manifest key, sorted.
func (m *Manifest) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.chunks))
	for key := range m.chunks {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Entries returns the keys of the top-level entry chunks, sorted.
func (m *Manifest) Entries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for key, c := range m.chunks {
		if c.IsEntry {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Bundle walks the static imports of source and collects its script,
// preloads and stylesheets. Each file appears once.
func (m *Manifest) Bundle(source string) (Bundle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root, ok := m.chunks[source]
	if !ok {
		return Bundle{}, false
	}

	b := Bundle{Script: root.File}
	seen := map[string]bool{source: true}
	cssSeen := make(map[string]bool)

	addCSS := func(c Chunk) {
		for _, css := range c.CSS {
			if !cssSeen[css] {
				cssSeen[css] = true
				b.CSS = append(b.CSS, css)
			}
		}
	}

	var visit func(key string)
	visit = func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		c, ok := m.chunks[key]
		if !ok {
			return
		}
		b.Imports = append(b.Imports, c.File)
		for _, imp := range c.Imports {
			visit(imp)
		}
		addCSS(c)
	}

	for _, imp := range root.Imports {
		visit(imp)
	}
	addCSS(root)

	return b, true
}
