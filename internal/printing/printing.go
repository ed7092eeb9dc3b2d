package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupported is returned for file types the command does not accept.
var ErrUnsupported = errors.New("printing: unsupported file type")

var printable = map[string]bool{
	".doc":  true,
	".docx": true,
	".pdf":  true,
}

var openable = map[string]bool{
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
	".pdf":  true,
}

// CanPrint reports whether name has a printable extension.
func CanPrint(name string) bool {
	return printable[strings.ToLower(filepath.Ext(name))]
}

// CanOpen reports whether name has an extension the viewer accepts.
func CanOpen(name string) bool {
	return openable[strings.ToLower(filepath.Ext(name))]
}

// Runner runs an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err = cmd.Run()
	return out.Bytes(), err
}

// Options configures a Service.
type Options struct {
	// Command is the print command. Default: "lp".
	Command string

	// Printer selects a destination with "-d". Empty uses the system default.
	Printer string

	// OpenCommand launches the desktop viewer. Default: "xdg-open".
	OpenCommand string

	// Runner executes commands. Default: ExecRunner.
	Runner Runner
}

// Service prints and opens files.
type Service struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Service, filling in defaults.
func New(opts Options) *Service {
	if opts.Command == "" {
		opts.Command = "lp"
	}
	if opts.OpenCommand == "" {
		opts.OpenCommand = "xdg-open"
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	return &Service{
		opts:   opts,
		logger: slog.Default().With("component", "printing"),
	}
}

// Print sends the file at path to the print command.
func (s *Service) Print(ctx context.Context, path string) error {
	if !CanPrint(path) {
		return fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	var args []string
	if s.opts.Printer != "" {
		args = append(args, "-d", s.opts.Printer)
	}
	args = append(args, path)

	return s.run(ctx, "print", s.opts.Command, args...)
}

// Open launches the desktop viewer for the file at path.
func (s *Service) Open(ctx context.Context, path string) error {
	if !CanOpen(path) {
		return fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	return s.run(ctx, "open", s.opts.OpenCommand, path)
}

func (s *Service) run(ctx context.Context, op, name string, args ...string) error {
	start := time.Now()
	out, err := s.opts.Runner.Run(ctx, name, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		s.logger.Error(op+" failed", "command", name, "args", args, "output", msg, "error", err)
		if msg != "" {
			return fmt.Errorf("%s %s: %w: %s", op, filepath.Base(args[len(args)-1]), err, msg)
		}
		return fmt.Errorf("%s %s: %w", op, filepath.Base(args[len(args)-1]), err)
	}
	s.logger.Info(op+" ok", "command", name, "file", filepath.Base(args[len(args)-1]), "duration", time.Since(start))
	return nil
}
