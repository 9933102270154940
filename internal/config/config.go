package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultDateFormat   = "02.01.2006"
	DefaultPreviewCache = 32

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "MCP_PDF_FORMS"
)

// Config holds all configuration for the order form MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	PDFDirectory    string // root for local document paths
	OutputDirectory string // where saved filled documents go, empty for <PDFDirectory>/filled
	MappingFile     string // optional YAML registry overlay
	Flatten         bool   // flatten filled documents unless a request says otherwise
	FetchTimeout    time.Duration
	DateFormat      string // Go time layout
	PreviewCache    int    // rendered preview pages kept in memory

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		DateFormat:   DefaultDateFormat,
		PreviewCache: DefaultPreviewCache,
		Version:      "1.0.0",
		ServerName:   "mcp-pdf-forms",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("outputdir", cfg.OutputDirectory)
	viper.SetDefault("mappings", cfg.MappingFile)
	viper.SetDefault("flatten", cfg.Flatten)
	viper.SetDefault("fetchtimeout", cfg.FetchTimeout)
	viper.SetDefault("dateformat", cfg.DateFormat)
	viper.SetDefault("previewcache", cfg.PreviewCache)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory local PDF paths are resolved against")
	pflag.String("outputdir", cfg.OutputDirectory, "Directory for saved filled PDFs (default <dir>/filled)")
	pflag.String("mappings", cfg.MappingFile, "YAML file with additional manufacturer field mappings")
	pflag.Bool("flatten", cfg.Flatten, "Flatten filled PDFs by default")
	pflag.Duration("fetchtimeout", cfg.FetchTimeout, "Timeout for fetching a PDF (0 for none)")
	pflag.String("dateformat", cfg.DateFormat, "Go time layout for dates written into forms")
	pflag.Int("previewcache", cfg.PreviewCache, "Rendered preview pages kept in memory")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

var flagNames = []string{
	"mode", "host", "port", "dir", "outputdir", "mappings", "flatten",
	"fetchtimeout", "dateformat", "previewcache", "loglevel", "maxfilesize",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range flagNames {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Forms - A Model Context Protocol server for filling PDF order forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/forms --mappings=forms.yaml   "+
			"# custom directory and mappings\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/srv/forms           # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081  # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, name := range flagNames {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", EnvPrefix, strings.ToUpper(name))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("outputdir")
	cfg.MappingFile = viper.GetString("mappings")
	cfg.Flatten = viper.GetBool("flatten")
	cfg.FetchTimeout = viper.GetDuration("fetchtimeout")
	cfg.DateFormat = viper.GetString("dateformat")
	cfg.PreviewCache = viper.GetInt("previewcache")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// expandPaths makes configured paths absolute
func (c *Config) expandPaths() {
	for _, p := range []*string{&c.PDFDirectory, &c.OutputDirectory, &c.MappingFile} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.OutputDirectory != "" {
		if info, err := os.Stat(c.OutputDirectory); err == nil && !info.IsDir() {
			return fmt.Errorf("output directory %s is not a directory", c.OutputDirectory)
		}
	}

	if c.MappingFile != "" {
		if _, err := os.Stat(c.MappingFile); err != nil {
			return fmt.Errorf("cannot access mapping file %s: %w", c.MappingFile, err)
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.FetchTimeout < 0 {
		return errors.New("fetch timeout cannot be negative")
	}

	if c.PreviewCache < 1 {
		return errors.New("preview cache must hold at least one page")
	}

	// A layout without any reference-time element formats to itself.
	if c.DateFormat == "" || time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC).Format(c.DateFormat) == c.DateFormat {
		return fmt.Errorf("invalid date format: %q", c.DateFormat)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"MappingFile: %s, Flatten: %t, FetchTimeout: %s, DateFormat: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.MappingFile, c.Flatten, c.FetchTimeout, c.DateFormat, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
