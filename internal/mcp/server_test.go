package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/domain"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bestellung.pdf"), pdftest.OrderForm().Bytes(), 0o600))

	cfg := config.DefaultConfig()
	cfg.PDFDirectory = dir
	cfg.ServerName = "test-server"

	svc, err := pdf.NewService(pdf.Options{Directory: dir, Logger: quietLogger})
	require.NoError(t, err)
	srv, err := NewServer(cfg, svc, quietLogger)
	require.NoError(t, err)
	return srv, dir
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}

// jsonPayload returns the JSON document that follows the summary text
func jsonPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	text := extractTextFromResult(result)
	start := strings.Index(text, "\n{")
	require.GreaterOrEqual(t, start, 0, "no JSON in %q", text)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text[start+1:]), &out))
	return out
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(config.DefaultConfig(), nil, nil)
	assert.Error(t, err)

	srv, _ := newTestServer(t)
	assert.NotNil(t, srv.mcpServer)
	assert.NotNil(t, srv.pdfService)
}

func TestServer_HandleFormList(t *testing.T) {
	srv, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "isokorb-order.pdf"), pdftest.OrderForm().Bytes(), 0o600))
	ctx := context.Background()

	result, err := srv.handleFormList(ctx, callRequest(map[string]any{"countFields": true}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Found 2 PDF form(s)")
	assert.Contains(t, text, "1. bestellung.pdf (")
	assert.Contains(t, text, ", 9 field(s)")
	assert.Equal(t, float64(2), jsonPayload(t, result)["totalCount"])

	result, err = srv.handleFormList(ctx, callRequest(map[string]any{"query": "isokorb", "limit": 5}))
	require.NoError(t, err)
	text = extractTextFromResult(result)
	assert.Contains(t, text, `Found 1 PDF form(s) in: `+dir+` matching "isokorb"`)
	assert.NotContains(t, text, "field(s)")
}

func TestServer_HandleFormFields(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleFormFields(ctx, callRequest(map[string]any{"location": "bestellung.pdf"}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Found 9 form field(s)")
	assert.Contains(t, text, "Bestellnummer (text), page 1, required")
	assert.Contains(t, text, `Datum (text), page 1, value "01.01.2024"`)
	assert.Equal(t, float64(9), jsonPayload(t, result)["count"])

	result, err = srv.handleFormFields(ctx, callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.handleFormFields(ctx, callRequest(map[string]any{"location": "fehlt.pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "PDF_FETCH")
}

func TestServer_HandleFormTemplate(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleFormTemplate(context.Background(), callRequest(map[string]any{"location": "bestellung.pdf"}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "non-text fields skipped: Express, Lieferart")
	assert.Contains(t, jsonPayload(t, result)["persisted"], `"Projekt"`)
}

func TestServer_HandleOrderMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleOrderMapping(ctx, callRequest(map[string]any{
		"template": map[string]any{"manufacturer": "Hilti", "productType": "HIT-Elements"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))
	assert.Contains(t, extractTextFromResult(result), "origin: registry")

	result, err = srv.handleOrderMapping(ctx, callRequest(map[string]any{
		"template": `{"manufacturer": "Acme", "productType": "Widgets"}`,
	}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "origin: default")
	assert.Contains(t, text, "Warnings (1)")

	result, err = srv.handleOrderMapping(ctx, callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_HandleOrderResolve(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleOrderResolve(context.Background(), callRequest(map[string]any{
		"template": map[string]any{
			"fieldMapping": []any{
				map[string]any{"pdfField": "Projekt", "source": "project", "field": "name"},
				map[string]any{"pdfField": "Lieferdatum", "source": "orderList", "field": "submissionDate", "transform": "date"},
				map[string]any{"pdfField": "Pos1_Menge", "source": "item", "field": "quantity", "transform": "quantity"},
			},
		},
		"orderData": map[string]any{
			"project":   map[string]any{"name": "Schulhaus Tannegg"},
			"orderList": map[string]any{"submissionDate": "2025-03-14T00:00:00Z"},
			"items":     []any{map[string]any{"article": "HIT-MV 20", "quantity": "12"}},
		},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	values := jsonPayload(t, result)["values"].(map[string]any)
	assert.Equal(t, "Schulhaus Tannegg", values["Projekt"])
	assert.Equal(t, "14.03.2025", values["Lieferdatum"])
	assert.Equal(t, "12", values["Pos1_Menge"])
}

func TestServer_HandleOrderResolveKeepsRowOrder(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	const rows = 12
	var list []any
	var objectText []string
	var items []any
	for i := 1; i <= rows; i++ {
		name := fmt.Sprintf("Pos%d_Artikel", i)
		list = append(list, map[string]any{"pdfField": name, "source": "item", "field": "article"})
		objectText = append(objectText, fmt.Sprintf(`%q: {"source": "item", "field": "article"}`, name))
		items = append(items, map[string]any{"article": fmt.Sprintf("A%d", i)})
	}

	tests := []struct {
		name     string
		template any
	}{
		{"list form", map[string]any{"fieldMapping": list}},
		{"template as JSON text", `{"manufacturer": "Acme", "fieldMapping": {` + strings.Join(objectText, ", ") + `}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleOrderResolve(ctx, callRequest(map[string]any{
				"template":  tt.template,
				"orderData": map[string]any{"items": items},
			}))
			require.NoError(t, err)
			require.False(t, result.IsError, extractTextFromResult(result))

			payload := jsonPayload(t, result)
			values := payload["values"].(map[string]any)
			for i := 1; i <= rows; i++ {
				assert.Equal(t, fmt.Sprintf("A%d", i), values[fmt.Sprintf("Pos%d_Artikel", i)])
			}
			fields := payload["fields"].([]any)
			require.Len(t, fields, rows)
			assert.Equal(t, "Pos10_Artikel", fields[9])
		})
	}

	t.Run("decoded object is rejected", func(t *testing.T) {
		result, err := srv.handleOrderResolve(ctx, callRequest(map[string]any{
			"template": map[string]any{"fieldMapping": map[string]any{
				"Pos1_Artikel": map[string]any{"source": "item", "field": "article"},
			}},
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, extractTextFromResult(result), "loses its entry order")
	})
}

func TestServer_HandleOrderFill(t *testing.T) {
	srv, dir := newTestServer(t)

	result, err := srv.handleOrderFill(context.Background(), callRequest(map[string]any{
		"template": map[string]any{"fileUrl": "bestellung.pdf"},
		"values":   map[string]any{"Projekt": "Schulhaus Tannegg", "Unbekannt": "x"},
		"save":     true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Filled PDF: filled-bestellung.pdf")
	assert.Contains(t, text, "Not in document: Unbekannt")
	assert.Contains(t, text, "Saved to: "+filepath.Join(dir, pdf.DefaultOutputSubdir))

	payload := jsonPayload(t, result)
	data, err := base64.StdEncoding.DecodeString(payload["content"].(string))
	require.NoError(t, err)
	fields, err := acroform.ExtractFormFields(data)
	require.NoError(t, err)
	assert.Equal(t, "Schulhaus Tannegg", fields[0].Value)

	result, err = srv.handleOrderFill(context.Background(), callRequest(map[string]any{
		"template": map[string]any{},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_HandlePreview(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handlePreview(ctx, callRequest(map[string]any{"location": "bestellung.pdf", "scale": 0.5}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))
	assert.Contains(t, extractTextFromResult(result), "Page 1 of 1 at 0.5x (298x421 px)")

	var image *mcp.ImageContent
	for _, c := range result.Content {
		if ic, ok := c.(mcp.ImageContent); ok {
			image = &ic
		}
	}
	require.NotNil(t, image)
	assert.Equal(t, "image/png", image.MIMEType)
	assert.NotEmpty(t, image.Data)

	result, err = srv.handlePreview(ctx, callRequest(map[string]any{"action": "zoom_in"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "at 0.7x")

	result, err = srv.handlePreview(ctx, callRequest(map[string]any{"action": "spin"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

type testSession struct {
	id string
	ch chan mcp.JSONRPCNotification
}

func newTestSession(id string) *testSession {
	return &testSession{id: id, ch: make(chan mcp.JSONRPCNotification, 1)}
}

func (s *testSession) Initialize()                                         {}
func (s *testSession) Initialized() bool                                   { return true }
func (s *testSession) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.ch }
func (s *testSession) SessionID() string                                   { return s.id }

func TestServer_HandlePreviewPerSession(t *testing.T) {
	srv, _ := newTestServer(t)
	first, second := newTestSession("erste"), newTestSession("zweite")
	require.NoError(t, srv.mcpServer.RegisterSession(context.Background(), first))
	require.NoError(t, srv.mcpServer.RegisterSession(context.Background(), second))
	firstCtx := srv.mcpServer.WithContext(context.Background(), first)
	secondCtx := srv.mcpServer.WithContext(context.Background(), second)

	result, err := srv.handlePreview(firstCtx, callRequest(map[string]any{"location": "bestellung.pdf", "scale": 0.5}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	result, err = srv.handlePreview(secondCtx, callRequest(map[string]any{"action": "zoom_in"}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "second session has nothing loaded")

	result, err = srv.handlePreview(secondCtx, callRequest(map[string]any{"location": "bestellung.pdf"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "at 1.0x")

	result, err = srv.handlePreview(firstCtx, callRequest(map[string]any{"action": "zoom_in"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "at 0.7x")

	srv.mcpServer.UnregisterSession(context.Background(), first.SessionID())
	result, err = srv.handlePreview(firstCtx, callRequest(map[string]any{"action": "next"}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "viewer dropped with the session")
}

func TestServer_HandleServerInfo(t *testing.T) {
	srv, dir := newTestServer(t)

	result, err := srv.handleServerInfo(context.Background(), callRequest(nil))
	require.NoError(t, err)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "test-server")
	assert.Contains(t, text, dir)
	assert.Contains(t, text, "hilti: anchors, hit-elements")
	for _, name := range descriptions.GetAllToolNames() {
		assert.Contains(t, text, "• "+name)
	}
}

func TestDecodeArgs(t *testing.T) {
	args, err := decodeArgs(callRequest(map[string]any{
		"template": map[string]any{
			"manufacturer": "Schöck",
			"fieldMapping": []any{map[string]any{"pdfField": "Projekt", "source": "project", "field": "name"}},
		},
		"orderData": `{"orderList": {"status": "Submitted", "submissionDate": "2025-03-14T08:30:00+01:00"},
			"items": [{"article": "K20", "quantity": 3, "specifications": {"loadClass": "CV35"}}]}`,
		"values":  map[string]any{"Menge": 3},
		"flatten": "true",
	}))
	require.NoError(t, err)

	require.NotNil(t, args.Template)
	assert.Equal(t, "Schöck", args.Template.Manufacturer)
	assert.JSONEq(t, `{"Projekt": {"source": "project", "field": "name"}}`, args.Template.FieldMapping)

	order := args.order()
	require.NotNil(t, order.OrderList)
	assert.Equal(t, domain.StatusSubmitted, order.OrderList.Status)
	require.NotNil(t, order.OrderList.SubmissionDate)
	assert.True(t, order.OrderList.SubmissionDate.Equal(time.Date(2025, 3, 14, 7, 30, 0, 0, time.UTC)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3.0, order.Items[0].Quantity)
	assert.Equal(t, "CV35", order.Items[0].Specifications["loadClass"])

	assert.Equal(t, map[string]string{"Menge": "3"}, args.Values)
	require.NotNil(t, args.Flatten)
	assert.True(t, *args.Flatten)

	_, err = decodeArgs(callRequest(map[string]any{"orderData": "{kaputt"}))
	assert.Error(t, err)

	_, err = decodeArgs(callRequest(map[string]any{
		"orderData": map[string]any{"orderList": map[string]any{"status": "ordered"}},
	}))
	assert.ErrorContains(t, err, `invalid order list status "ordered"`)

	args, err = decodeArgs(callRequest(map[string]any{
		"orderData": map[string]any{"orderList": map[string]any{"status": ""}},
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.Status(""), args.order().OrderList.Status)

	_, err = decodeArgs(callRequest(map[string]any{
		"template": map[string]any{"fieldMapping": []any{map[string]any{"source": "project", "field": "name"}}},
	}))
	assert.ErrorContains(t, err, "entry 1 has no pdfField")

	args, err = decodeArgs(callRequest(nil))
	require.NoError(t, err)
	assert.Nil(t, args.Template)
	assert.Equal(t, 0, len(args.order().Items))
}

func TestServer_RunServerModeStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.config.Mode = config.ModeServer
	srv.config.Port = 0

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
