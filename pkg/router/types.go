package router

import (
	"context"
	"errors"
	"fmt"
)

// Component is a loaded page: the script that renders it and what the
// document must fetch alongside.
type Component struct {
	// Source is the view source file, e.g. "src/views/FileList.vue".
	Source string

	// Script is the URL of the view's chunk.
	Script string

	// Imports are URLs of chunks to preload.
	Imports []string

	// CSS are stylesheet URLs.
	CSS []string
}

// Loader produces a route's component on first navigation.
type Loader func(ctx context.Context) (*Component, error)

// Meta is per-route metadata applied to the document.
type Meta struct {
	Title string
}

// Route is one entry of the route table.
type Route struct {
	Path string
	Name string
	Load Loader
	Meta Meta
}

// Route table errors.
var (
	ErrEmptyPath     = errors.New("router: empty route path")
	ErrRelativePath  = errors.New("router: route path must start with /")
	ErrDuplicatePath = errors.New("router: duplicate route path")
	ErrEmptyName     = errors.New("router: empty route name")
	ErrDuplicateName = errors.New("router: duplicate route name")
	ErrNilLoader     = errors.New("router: route has no loader")
	ErrBadPattern    = errors.New("router: invalid route pattern")
)

// LoadError reports a failed component load.
type LoadError struct {
	Route string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("router: load %q: %v", e.Route, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// routeError ties a table error to the offending path.
func routeError(err error, path string) error {
	return fmt.Errorf("%w: %q", err, path)
}
