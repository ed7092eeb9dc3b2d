package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/printdesk/printdesk/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "printdesk.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	YAMLConfigFileName = "printdesk.yaml"

	// DefaultHost is the default listen host.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the default listen port.
	DefaultPort = 80

	// DefaultUploadDir is the default directory for uploaded files.
	DefaultUploadDir = "uploads"

	// DefaultConnectionsFile is where saved VNC connections live.
	DefaultConnectionsFile = "config/vnc_connections.json"

	// DefaultVNCTarget is used when a proxy request names no host.
	DefaultVNCTarget = "localhost:5900"

	// DefaultBufferSize is the proxy read buffer size.
	DefaultBufferSize = 65536

	// DefaultMaxUploadSize is the upload size limit (100MB).
	DefaultMaxUploadSize = 100 << 20
)

// Storage backends.
const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// Config represents the complete printdesk configuration.
type Config struct {
	// Server contains HTTP listener configuration.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Storage contains uploaded file storage configuration.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`

	// VNC contains VNC connection and proxy configuration.
	VNC VNCConfig `json:"vnc,omitempty" yaml:"vnc,omitempty"`

	// Print contains printing command configuration.
	Print PrintConfig `json:"print,omitempty" yaml:"print,omitempty"`

	// Frontend contains front-end location and build configuration.
	Frontend FrontendConfig `json:"frontend,omitempty" yaml:"frontend,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// RateLimit contains upload rate limiting configuration.
	RateLimit RateLimitConfig `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "5s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// Metrics exposes /metrics when true.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// StorageConfig contains uploaded file storage settings.
type StorageConfig struct {
	// Backend selects the store: "disk" or "s3".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Dir is the upload directory for the disk backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize int64 `json:"maxUploadSize,omitempty" yaml:"maxUploadSize,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config contains S3 bucket settings.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// VNCConfig contains VNC connection list and proxy settings.
type VNCConfig struct {
	// ConnectionsFile is the JSON file holding saved connections.
	ConnectionsFile string `json:"connectionsFile,omitempty" yaml:"connectionsFile,omitempty"`

	// DefaultTarget is the TCP address used when no host is requested.
	DefaultTarget string `json:"defaultTarget,omitempty" yaml:"defaultTarget,omitempty"`

	// AllowCustomTarget lets clients pick the target with ?host=.
	// A nil value means true.
	AllowCustomTarget *bool `json:"allowCustomTarget,omitempty" yaml:"allowCustomTarget,omitempty"`

	// BufferSize is the proxy read buffer size in bytes.
	BufferSize int `json:"bufferSize,omitempty" yaml:"bufferSize,omitempty"`

	// DialTimeout bounds the TCP connect (e.g., "10s").
	DialTimeout string `json:"dialTimeout,omitempty" yaml:"dialTimeout,omitempty"`

	// ReadTimeout and WriteTimeout set per-message deadlines. Empty disables them.
	ReadTimeout  string `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout string `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	// HeartbeatInterval is the WebSocket ping interval. Empty disables pings.
	HeartbeatInterval string `json:"heartbeatInterval,omitempty" yaml:"heartbeatInterval,omitempty"`
}

// PrintConfig contains printing command settings.
type PrintConfig struct {
	// Command is the print spooler command (default "lp").
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// Printer is the destination printer; empty uses the system default.
	Printer string `json:"printer,omitempty" yaml:"printer,omitempty"`

	// OpenCommand opens a document on the desktop (default "xdg-open").
	OpenCommand string `json:"openCommand,omitempty" yaml:"openCommand,omitempty"`
}

// FrontendConfig contains front-end settings.
type FrontendConfig struct {
	// Dir is the front-end project directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Build contains bundler configuration.
	Build BuildConfig `json:"build,omitempty" yaml:"build,omitempty"`
}

// BuildConfig contains bundler settings.
type BuildConfig struct {
	// Plugins are the bundler plugins in application order.
	Plugins []string `json:"plugins,omitempty" yaml:"plugins,omitempty"`

	// Target is the ECMAScript output level.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Minify enables minification.
	Minify bool `json:"minify,omitempty" yaml:"minify,omitempty"`

	// Alias maps an import prefix to a directory relative to Frontend.Dir.
	Alias map[string]string `json:"alias,omitempty" yaml:"alias,omitempty"`

	// OutDir is the bundler output directory relative to Frontend.Dir.
	OutDir string `json:"outDir,omitempty" yaml:"outDir,omitempty"`

	// Command is the bundler invocation (default "npx vite build").
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// RateLimitConfig limits uploads per client address.
type RateLimitConfig struct {
	// UploadsPerMinute is the sustained rate. Zero disables limiting.
	UploadsPerMinute int `json:"uploadsPerMinute,omitempty" yaml:"uploadsPerMinute,omitempty"`

	// Burst is the bucket size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	allow := true
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: "5s",
			Metrics:         true,
		},
		Storage: StorageConfig{
			Backend:       BackendDisk,
			Dir:           DefaultUploadDir,
			MaxUploadSize: DefaultMaxUploadSize,
		},
		VNC: VNCConfig{
			ConnectionsFile:   DefaultConnectionsFile,
			DefaultTarget:     DefaultVNCTarget,
			AllowCustomTarget: &allow,
			BufferSize:        DefaultBufferSize,
			DialTimeout:       "10s",
			HeartbeatInterval: "30s",
		},
		Print: PrintConfig{
			Command:     "lp",
			OpenCommand: "xdg-open",
		},
		Frontend: FrontendConfig{
			Dir: "frontend",
			Build: BuildConfig{
				Plugins: []string{"vue", "top-level-await"},
				Target:  "esnext",
				Minify:  false,
				Alias:   map[string]string{"@": "src"},
				OutDir:  "dist",
				Command: []string{"npx", "vite", "build"},
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			UploadsPerMinute: 60,
			Burst:            10,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for printdesk.json first, then printdesk.yaml.
func Load(dir string) (*Config, error) {
	jsonPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(jsonPath); err == nil {
		return LoadFile(jsonPath)
	}
	yamlPath := filepath.Join(dir, YAMLConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return LoadFile(yamlPath)
	}
	return nil, errors.New("E101").
		WithDetail("No " + ConfigFileName + " or " + YAMLConfigFileName + " found in " + dir).
		WithSuggestion("Run 'printdesk serve' without --config to use the defaults")
}

// LoadOrDefault is like Load but returns New() when no file exists.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.Is(err, "E101") {
		cfg = New()
		cfg.configPath = filepath.Join(dir, ConfigFileName)
		return cfg, nil
	}
	return cfg, err
}

// LoadFile reads configuration from the specified file path.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").WithDetail(path)
		}
		return nil, errors.New("E102").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E102").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E102").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = d.Storage.Dir
	}
	if c.Storage.MaxUploadSize == 0 {
		c.Storage.MaxUploadSize = d.Storage.MaxUploadSize
	}

	if c.VNC.ConnectionsFile == "" {
		c.VNC.ConnectionsFile = d.VNC.ConnectionsFile
	}
	if c.VNC.DefaultTarget == "" {
		c.VNC.DefaultTarget = d.VNC.DefaultTarget
	}
	if c.VNC.AllowCustomTarget == nil {
		c.VNC.AllowCustomTarget = d.VNC.AllowCustomTarget
	}
	if c.VNC.BufferSize == 0 {
		c.VNC.BufferSize = d.VNC.BufferSize
	}
	if c.VNC.DialTimeout == "" {
		c.VNC.DialTimeout = d.VNC.DialTimeout
	}

	if c.Print.Command == "" {
		c.Print.Command = d.Print.Command
	}
	if c.Print.OpenCommand == "" {
		c.Print.OpenCommand = d.Print.OpenCommand
	}

	if c.Frontend.Dir == "" {
		c.Frontend.Dir = d.Frontend.Dir
	}
	b := &c.Frontend.Build
	if len(b.Plugins) == 0 {
		b.Plugins = d.Frontend.Build.Plugins
	}
	if b.Target == "" {
		b.Target = d.Frontend.Build.Target
	}
	if len(b.Alias) == 0 {
		b.Alias = d.Frontend.Build.Alias
	}
	if b.OutDir == "" {
		b.OutDir = d.Frontend.Build.OutDir
	}
	if len(b.Command) == 0 {
		b.Command = d.Frontend.Build.Command
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E103").
			WithDetail("server.port must be between 0 and 65535")
	}
	switch c.Storage.Backend {
	case BackendDisk:
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("E103").WithDetail("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return errors.New("E103").
			WithDetail("storage.backend must be \"disk\" or \"s3\", got " + strconv.Quote(c.Storage.Backend))
	}
	if c.VNC.BufferSize < 0 {
		return errors.New("E103").WithDetail("vnc.bufferSize must not be negative")
	}
	for name, value := range map[string]string{
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"vnc.dialTimeout":        c.VNC.DialTimeout,
		"vnc.readTimeout":        c.VNC.ReadTimeout,
		"vnc.writeTimeout":       c.VNC.WriteTimeout,
		"vnc.heartbeatInterval":  c.VNC.HeartbeatInterval,
	} {
		if _, err := parseDuration(value); err != nil {
			return errors.New("E103").WithDetail(name + ": " + err.Error())
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E103").WithDetail("log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E103").WithDetail("log.format must be text or json")
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := parseDuration(c.Server.ShutdownTimeout)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}

// CustomTargetAllowed reports whether proxy clients may choose the target.
func (c *Config) CustomTargetAllowed() bool {
	return c.VNC.AllowCustomTarget == nil || *c.VNC.AllowCustomTarget
}

// Duration parses one of the duration fields; empty strings yield zero.
func Duration(value string) time.Duration {
	d, _ := parseDuration(value)
	return d
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}

// resolve returns path relative to the config directory unless absolute.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// UploadPath returns the path to the upload directory.
func (c *Config) UploadPath() string {
	return c.resolve(c.Storage.Dir)
}

// ConnectionsPath returns the path to the saved VNC connections file.
func (c *Config) ConnectionsPath() string {
	return c.resolve(c.VNC.ConnectionsFile)
}

// FrontendPath returns the path to the front-end project.
func (c *Config) FrontendPath() string {
	return c.resolve(c.Frontend.Dir)
}
