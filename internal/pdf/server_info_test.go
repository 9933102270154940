package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
)

func TestServerInfo(t *testing.T) {
	svc, dir := newTestService(t, Options{MaxFileSize: 10 * 1024 * 1024, Flatten: true, DateLayout: "2006-01-02"})

	info := svc.ServerInfo("test-pdf-forms", "1.0.0-test")

	assert.Equal(t, "test-pdf-forms", info.ServerName)
	assert.Equal(t, "1.0.0-test", info.Version)
	assert.Equal(t, dir, info.DocumentRoot)
	assert.Equal(t, svc.OutputDirectory(), info.OutputDirectory)
	assert.Equal(t, int64(10*1024*1024), info.MaxFileSize)
	assert.True(t, info.FlattenByDefault)
	assert.Equal(t, "2006-01-02", info.DateLayout)

	assert.Contains(t, info.Manufacturers, "hilti")
	assert.Contains(t, info.Manufacturers["hilti"], "hit-elements")
	assert.Contains(t, info.Transforms, "swissPostal")
	assert.Equal(t, mapping.CustomFields(), info.CustomFields)
	assert.Equal(t, 0, info.PreviewCache.Size)

	require.Len(t, info.AvailableTools, len(descriptions.GetAllToolNames()))
	for _, tool := range info.AvailableTools {
		assert.NotEqual(t, "Tool description not available", tool.Description, tool.Name)
		assert.NotEmpty(t, tool.Usage, tool.Name)
		assert.NotEmpty(t, tool.Parameters, tool.Name)
	}

	assert.Contains(t, info.UsageGuidance, "10 MiB")
	assert.Contains(t, info.UsageGuidance, dir)
	assert.Contains(t, info.UsageGuidance, "2006-01-02")
}

func TestServerInfo_Defaults(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	info := svc.ServerInfo("srv", "dev")
	assert.False(t, info.FlattenByDefault)
	assert.Equal(t, mapping.DateLayout, info.DateLayout)
	assert.Contains(t, info.UsageGuidance, "100 MiB")
}
