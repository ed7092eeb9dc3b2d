package build

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/printdesk/printdesk/internal/config"
	"github.com/printdesk/printdesk/internal/errors"
	"github.com/printdesk/printdesk/internal/templates"
	"github.com/printdesk/printdesk/pkg/router"
)

// NotFoundView is the view scaffolded for unmatched paths.
const NotFoundView = "src/views/NotFound.vue"

// Plugin names a bundler plugin.
type Plugin string

const (
	// PluginVue compiles single-file view components.
	PluginVue Plugin = "vue"

	// PluginTopLevelAwait allows await at module top level.
	PluginTopLevelAwait Plugin = "top-level-await"
)

// knownPlugins maps plugin names to how they are imported in vite.config.ts.
var knownPlugins = map[Plugin]templates.Plugin{
	PluginVue:           {Ident: "vue", Module: "@vitejs/plugin-vue", Version: "^5.0.0"},
	PluginTopLevelAwait: {Ident: "topLevelAwait", Module: "vite-plugin-top-level-await", Version: "^1.4.0"},
}

// knownTargets are the accepted ECMAScript output levels.
var knownTargets = map[string]bool{
	"es2015": true, "es2016": true, "es2017": true, "es2018": true,
	"es2019": true, "es2020": true, "es2021": true, "es2022": true,
	"es2023": true, "es2024": true, "esnext": true,
}

// Alias maps an import prefix to a directory.
type Alias struct {
	// Prefix is the import prefix, e.g. "@".
	Prefix string

	// Dir is the absolute (or root-relative) directory it stands for.
	Dir string
}

// Config is the bundler configuration.
type Config struct {
	// Root is the front-end project directory.
	Root string

	// Plugins are applied in order.
	Plugins []Plugin

	// Target is the ECMAScript output level.
	Target string

	// Minify enables minification.
	Minify bool

	// Aliases are the import aliases.
	Aliases []Alias

	// OutDir is the output directory relative to Root.
	OutDir string

	// Command is the bundler invocation, run in Root.
	Command []string
}

// Default returns the standard configuration for a front-end rooted at root.
func Default(root string) Config {
	return Config{
		Root:    root,
		Plugins: []Plugin{PluginVue, PluginTopLevelAwait},
		Target:  "esnext",
		Minify:  false,
		Aliases: []Alias{{Prefix: "@", Dir: filepath.Join(root, "src")}},
		OutDir:  "dist",
		Command: []string{"npx", "vite", "build"},
	}
}

// FromConfig builds the configuration from the application config.
func FromConfig(cfg *config.Config) Config {
	root := cfg.FrontendPath()
	b := cfg.Frontend.Build

	out := Default(root)
	if len(b.Plugins) > 0 {
		out.Plugins = make([]Plugin, len(b.Plugins))
		for i, p := range b.Plugins {
			out.Plugins[i] = Plugin(p)
		}
	}
	if b.Target != "" {
		out.Target = b.Target
	}
	out.Minify = b.Minify
	if len(b.Alias) > 0 {
		out.Aliases = out.Aliases[:0]
		prefixes := make([]string, 0, len(b.Alias))
		for prefix := range b.Alias {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			dir := b.Alias[prefix]
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(root, dir)
			}
			out.Aliases = append(out.Aliases, Alias{Prefix: prefix, Dir: dir})
		}
	}
	if b.OutDir != "" {
		out.OutDir = b.OutDir
	}
	if len(b.Command) > 0 {
		out.Command = b.Command
	}
	return out
}

// OutputPath returns the absolute output directory.
func (c Config) OutputPath() string {
	if filepath.IsAbs(c.OutDir) {
		return c.OutDir
	}
	return filepath.Join(c.Root, c.OutDir)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !knownTargets[c.Target] {
		return errors.New("E701").
			WithDetail("unknown build target " + c.Target).
			WithSuggestion("Use esnext or an esYYYY level")
	}
	seen := make(map[Plugin]bool, len(c.Plugins))
	for _, p := range c.Plugins {
		if _, ok := knownPlugins[p]; !ok {
			return errors.New("E701").WithDetail("unknown plugin " + string(p))
		}
		if seen[p] {
			return errors.New("E701").WithDetail("duplicate plugin " + string(p))
		}
		seen[p] = true
	}
	prefixes := make(map[string]bool, len(c.Aliases))
	for _, a := range c.Aliases {
		if a.Prefix == "" {
			return errors.New("E701").WithDetail("alias prefix must not be empty")
		}
		if prefixes[a.Prefix] {
			return errors.New("E701").WithDetail("duplicate alias " + a.Prefix)
		}
		if a.Dir == "" {
			return errors.New("E701").WithDetail("alias " + a.Prefix + " has no directory")
		}
		prefixes[a.Prefix] = true
	}
	if len(c.Command) == 0 {
		return errors.New("E701").WithDetail("bundler command is empty")
	}
	return nil
}

// ResolveImport maps an aliased import specifier to a file system path.
// The longest matching alias prefix wins. Specifiers that use no alias are
// returned unchanged with ok == false.
func (c Config) ResolveImport(spec string) (string, bool) {
	var best *Alias
	for i := range c.Aliases {
		a := &c.Aliases[i]
		if spec != a.Prefix && !strings.HasPrefix(spec, a.Prefix+"/") {
			continue
		}
		if best == nil || len(a.Prefix) > len(best.Prefix) {
			best = a
		}
	}
	if best == nil {
		return spec, false
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(spec, best.Prefix), "/")
	if rest == "" {
		return best.Dir, true
	}
	return filepath.Join(best.Dir, filepath.FromSlash(rest)), true
}

// Template returns the template data for this configuration.
func (c Config) Template() templates.Config {
	out := templates.Config{
		ProjectName: "printdesk-frontend",
		Title:       "printdesk",
		Target:      c.Target,
		Minify:      c.Minify,
		OutDir:      filepath.ToSlash(c.OutDir),
	}
	for _, p := range c.Plugins {
		out.Plugins = append(out.Plugins, knownPlugins[p])
	}
	for _, a := range c.Aliases {
		dir := a.Dir
		if rel, err := filepath.Rel(c.Root, a.Dir); err == nil {
			dir = rel
		}
		out.Aliases = append(out.Aliases, templates.Alias{Prefix: a.Prefix, Dir: filepath.ToSlash(dir)})
	}
	out.Routes, out.NotFound = templateRoutes()
	return out
}

// templateRoutes renders the server's default route table for the
// front-end router so both sides match the same paths.
func templateRoutes() ([]templates.Route, templates.Route) {
	var sources []string
	routes := router.DefaultRoutes(func(source string) router.Loader {
		sources = append(sources, source)
		return nil
	})

	out := make([]templates.Route, len(routes))
	for i, r := range routes {
		out[i] = templates.Route{
			Path:   r.Path,
			Name:   r.Name,
			Title:  r.Meta.Title,
			Source: sources[i],
		}
	}
	notFound := templates.Route{
		Name:   router.NotFoundName,
		Title:  router.NotFoundTitle,
		Source: NotFoundView,
	}
	return out, notFound
}

// Render writes the equivalent vite.config.ts to w.
func (c Config) Render(w io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	tmpl, err := templates.Get("vite")
	if err != nil {
		return err
	}
	return tmpl.Render(w, templates.ViteConfigFile, c.Template())
}
