// Package build holds the front-end build configuration and runs the bundler.
//
// The configuration is a static object: a plugin list, an ECMAScript target,
// a minification toggle and an import alias table. Default always yields the
// same object for the same root; there is no environment-specific branching.
//
// # Usage
//
//	cfg := build.FromConfig(appConfig)
//	builder := build.New(cfg, build.Options{OnProgress: func(step string) {
//	    fmt.Println(step)
//	}})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Built %d chunks in %s\n", result.Manifest.Len(), result.Duration)
//
// # Output Structure
//
//	frontend/dist/
//	├── index.html
//	├── .vite/manifest.json   # chunk table read by pkg/assets
//	└── assets/               # fingerprinted chunks and stylesheets
package build
