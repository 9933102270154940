package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withArgs runs LoadFromFlags against fresh flag and viper state
func withArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		pflag.CommandLine = pflag.NewFlagSet(originalArgs[0], pflag.ExitOnError)
		viper.Reset()
	})

	os.Args = append([]string{"mcp-pdf-forms"}, args...)
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	viper.Reset()
	return LoadFromFlags()
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	cfg, err := withArgs(t)
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, DefaultDateFormat, cfg.DateFormat)
	assert.NotEmpty(t, cfg.PDFDirectory)
}

func TestLoadFromFlags_Flags(t *testing.T) {
	dir := t.TempDir()
	mappings := filepath.Join(dir, "mappings.yaml")
	require.NoError(t, os.WriteFile(mappings, []byte("mappings: []\n"), 0o600))

	cfg, err := withArgs(t,
		"--mode=server",
		"--host=0.0.0.0",
		"--port=9000",
		"--dir="+dir,
		"--outputdir="+filepath.Join(dir, "out"),
		"--mappings="+mappings,
		"--flatten",
		"--fetchtimeout=45s",
		"--dateformat=2006-01-02",
		"--previewcache=8",
		"--loglevel=debug",
		"--maxfilesize=2048",
	)
	require.NoError(t, err)

	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, "0.0.0.0:9000", cfg.Address())
	assert.Equal(t, dir, cfg.PDFDirectory)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.OutputDirectory)
	assert.Equal(t, mappings, cfg.MappingFile)
	assert.True(t, cfg.Flatten)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "2006-01-02", cfg.DateFormat)
	assert.Equal(t, 8, cfg.PreviewCache)
	assert.True(t, cfg.IsDebug())
	assert.Equal(t, int64(2048), cfg.MaxFileSize)
}

func TestLoadFromFlags_Environment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MCP_PDF_FORMS_MODE", "server")
	t.Setenv("MCP_PDF_FORMS_PORT", "3000")
	t.Setenv("MCP_PDF_FORMS_DIR", dir)
	t.Setenv("MCP_PDF_FORMS_FLATTEN", "true")
	t.Setenv("MCP_PDF_FORMS_FETCHTIMEOUT", "2m")
	t.Setenv("MCP_PDF_FORMS_LOGLEVEL", "warn")

	cfg, err := withArgs(t)
	require.NoError(t, err)

	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, dir, cfg.PDFDirectory)
	assert.True(t, cfg.Flatten)
	assert.Equal(t, 2*time.Minute, cfg.FetchTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("MCP_PDF_FORMS_MODE", "server")
	t.Setenv("MCP_PDF_FORMS_PORT", "3000")

	cfg, err := withArgs(t, "--mode=stdio", "--port=8888")
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, 8888, cfg.Port)
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid mode", []string{"--mode=http"}, "mode must be"},
		{"invalid port", []string{"--mode=server", "--port=0"}, "port"},
		{"invalid log level", []string{"--loglevel=trace"}, "invalid log level"},
		{"invalid date format", []string{"--dateformat=heute"}, "date format"},
		{"version", []string{"--version"}, "version requested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := withArgs(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
