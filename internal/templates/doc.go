// Package templates renders front-end project files from the build
// configuration.
//
// # Available Templates
//
//   - vite: the bundler configuration file (vite.config.ts)
//   - frontend: a front-end project skeleton (package.json, index.html,
//     vite.config.ts)
//
// # Usage
//
//	tmpl, err := templates.Get("frontend")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tmpl.Create(frontendDir, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # Template Variables
//
//	{{.ProjectName}}  - Name of the project
//	{{.Title}}        - Document title used by index.html
//	{{.Plugins}}      - Bundler plugins (Ident, Module, Package, Version)
//	{{.Target}}       - ECMAScript build target
//	{{.Minify}}       - Whether minification is enabled
//	{{.OutDir}}       - Bundler output directory
//	{{.Aliases}}      - Import aliases (Prefix, Dir)
package templates
