package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/printdesk/printdesk/internal/errors"
	"github.com/printdesk/printdesk/internal/templates"
	"github.com/printdesk/printdesk/pkg/assets"
)

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// OutDir is the absolute output directory.
	OutDir string

	// ConfigFile is the rendered bundler configuration.
	ConfigFile string

	// Manifest is the chunk table produced by the bundler.
	Manifest *assets.Manifest

	// Output is the combined bundler output.
	Output string
}

// Options configures the builder.
type Options struct {
	// Minify overrides the configured minification when set.
	Minify *bool

	// SkipConfig leaves an existing vite.config.ts untouched.
	SkipConfig bool

	// Env is appended to the bundler environment.
	Env []string

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder runs one bundler invocation per Build call.
type Builder struct {
	config  Config
	options Options
}

// New creates a new builder.
func New(cfg Config, options Options) *Builder {
	if options.Minify != nil {
		cfg.Minify = *options.Minify
	}
	return &Builder{
		config:  cfg,
		options: options,
	}
}

// Config returns the effective configuration.
func (b *Builder) Config() Config {
	return b.config
}

// Build renders the bundler config, runs the bundler and reads its manifest.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		OutDir:     b.config.OutputPath(),
		ConfigFile: filepath.Join(b.config.Root, templates.ViteConfigFile),
	}

	if !b.options.SkipConfig {
		b.progress("Writing " + templates.ViteConfigFile + "...")
		if err := b.writeConfig(result.ConfigFile); err != nil {
			return nil, err
		}
	}

	b.progress("Bundling front-end...")
	output, err := b.runBundler(ctx)
	result.Output = output
	if err != nil {
		return nil, err
	}

	b.progress("Reading manifest...")
	manifestPath := filepath.Join(result.OutDir, filepath.FromSlash(assets.ManifestPath))
	manifest, err := assets.Load(manifestPath)
	if err != nil {
		return nil, errors.New("E704").
			WithDetail(manifestPath).
			Wrap(err)
	}
	result.Manifest = manifest
	result.Duration = time.Since(start)

	return result, nil
}

func (b *Builder) writeConfig(path string) error {
	var buf bytes.Buffer
	if err := b.config.Render(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New("E702").Wrap(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.New("E702").Wrap(err)
	}
	return nil
}

// runBundler runs the configured command in the project root.
func (b *Builder) runBundler(ctx context.Context) (string, error) {
	name := b.config.Command[0]
	if _, err := exec.LookPath(name); err != nil {
		return "", errors.New("E703").
			WithDetail(name + " is not on PATH").
			WithSuggestion("Install Node.js from https://nodejs.org")
	}

	cmd := exec.CommandContext(ctx, name, b.config.Command[1:]...)
	cmd.Dir = b.config.Root
	cmd.Env = append(os.Environ(), b.options.Env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.String(), errors.New("E702").
			WithDetail(out.String()).
			Wrap(err)
	}
	return out.String(), nil
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.OutputPath())
}
