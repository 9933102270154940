package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, logger *slog.Logger) (*Server, error) {
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		pdfService.ClosePreview(session.SessionID())
	})

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithRecovery(),
		server.WithHooks(hooks),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		logger:     logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	templateArg := mcp.WithObject("template",
		mcp.Required(),
		mcp.Description("Stored PDF template: manufacturer, productType, fileUrl and fieldMapping "+
			"(persisted mapping JSON string, or a list of {pdfField, source, field, transform} in row order)"),
	)
	orderArg := mcp.WithObject("orderData",
		mcp.Description("Order data: project, part, orderList and items"),
	)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolFormList,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolFormList)),
		mcp.WithString("query",
			mcp.Description("Words that must occur in the file name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of forms to return"),
		),
		mcp.WithBoolean("countFields",
			mcp.Description("Parse each form and count its fields"),
		),
	), s.handleFormList)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolFormFields,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolFormFields)),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("http(s) URL or path of the PDF; relative paths resolve against the document root"),
		),
	), s.handleFormFields)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolFormTemplate,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolFormTemplate)),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("http(s) URL or path of the PDF"),
		),
	), s.handleFormTemplate)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolOrderMapping,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolOrderMapping)),
		templateArg,
	), s.handleOrderMapping)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolOrderResolve,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolOrderResolve)),
		templateArg,
		orderArg,
	), s.handleOrderResolve)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolOrderFill,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolOrderFill)),
		templateArg,
		orderArg,
		mcp.WithString("location",
			mcp.Description("PDF to fill; defaults to the template's fileUrl"),
		),
		mcp.WithObject("values",
			mcp.Description("Explicit PDF field values; when set, orderData is not resolved"),
		),
		mcp.WithBoolean("flatten",
			mcp.Description("Draw values into the page content and remove the form"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Save the filled PDF to the output directory"),
		),
	), s.handleOrderFill)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolFormPreview,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolFormPreview)),
		mcp.WithString("action",
			mcp.Description("load, next, previous, zoom_in, zoom_out or goto"),
			mcp.Enum(pdf.PreviewLoad, pdf.PreviewNext, pdf.PreviewPrevious,
				pdf.PreviewZoomIn, pdf.PreviewZoomOut, pdf.PreviewGoTo),
		),
		mcp.WithString("location",
			mcp.Description("PDF to load; defaults to the current document"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page to show, 1-based"),
		),
		mcp.WithNumber("scale",
			mcp.Description("Zoom factor between 0.5 and 3.0"),
		),
	), s.handlePreview)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolServerInfo)),
	), s.handleServerInfo)
}

// Handler functions
func (s *Server) handleFormList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ListForms(ctx, pdf.FormListRequest{
		Query:       request.GetString("query", ""),
		Limit:       request.GetInt("limit", 0),
		CountFields: request.GetBool("countFields", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.jsonResult(formatFormListResult(result), result)
}

func (s *Server) handleFormFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location, err := request.RequireString("location")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.FormFields(ctx, pdf.FormFieldsRequest{Location: location})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.jsonResult(formatFormFieldsResult(result), result)
}

func (s *Server) handleFormTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location, err := request.RequireString("location")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.FormTemplate(ctx, pdf.FormTemplateRequest{Location: location})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Mapping template for %s (%d fields", result.Location, result.Mapping.Len())
	if len(result.Skipped) > 0 {
		text += fmt.Sprintf(", %d non-text fields skipped: %s", len(result.Skipped), strings.Join(result.Skipped, ", "))
	}
	text += ")\nPersisted form:\n" + result.Persisted + "\n"
	return s.jsonResult(text, result)
}

func (s *Server) handleOrderMapping(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decodeArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Template == nil {
		return mcp.NewToolResultError("template is required"), nil
	}

	result := s.pdfService.Mapping(pdf.MappingRequest{Template: *args.Template})
	text := fmt.Sprintf("Mapping for %s / %s: %d fields (origin: %s)\n",
		orDash(result.Manufacturer), orDash(result.ProductType), result.Mapping.Len(), result.Origin)
	text += formatWarnings(result.Warnings)
	return s.jsonResult(text, result)
}

func (s *Server) handleOrderResolve(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decodeArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Template == nil {
		return mcp.NewToolResultError("template is required"), nil
	}

	result := s.pdfService.Resolve(pdf.ResolveRequest{Template: *args.Template, Order: args.order()})

	text := fmt.Sprintf("Resolved %d fields (mapping origin: %s)\n", len(result.Fields), result.Origin)
	for _, field := range result.Fields {
		text += fmt.Sprintf("  %s = %q\n", field, result.Values[field])
	}
	text += formatWarnings(result.Warnings)
	return s.jsonResult(text, result)
}

func (s *Server) handleOrderFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decodeArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.FillRequest{
		Location: args.Location,
		Order:    args.order(),
		Values:   args.Values,
		Flatten:  args.Flatten,
		Save:     args.Save,
	}
	if args.Template != nil {
		req.Template = *args.Template
	}

	result, err := s.pdfService.Fill(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	a := result.Artifact
	text := fmt.Sprintf("Filled PDF: %s (%d bytes, %s)\n", a.Filename, a.Size, a.ContentType)
	text += fmt.Sprintf("Filled fields: %d\n", len(a.Filled))
	if len(a.Missing) > 0 {
		text += fmt.Sprintf("Not in document: %s\n", strings.Join(a.Missing, ", "))
	}
	if len(a.Unsupported) > 0 {
		text += fmt.Sprintf("Unsupported fields: %s\n", strings.Join(a.Unsupported, ", "))
	}
	if a.Flattened {
		text += "Flattened: yes\n"
	}
	if result.SavedPath != "" {
		text += fmt.Sprintf("Saved to: %s\n", result.SavedPath)
	}
	text += formatWarnings(result.Warnings)

	payload := struct {
		*pdf.FillResult
		Content string `json:"content"` // base64 PDF
	}{result, base64.StdEncoding.EncodeToString(a.Bytes)}
	return s.jsonResult(text, payload)
}

func (s *Server) handlePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.PreviewRequest{
		Action:   request.GetString("action", pdf.PreviewLoad),
		Location: request.GetString("location", ""),
		Page:     request.GetInt("page", 0),
		Scale:    request.GetFloat("scale", 0),
	}
	if session := server.ClientSessionFromContext(ctx); session != nil {
		req.Session = session.SessionID()
	}

	result, err := s.pdfService.Preview(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st := result.State
	text := fmt.Sprintf("Page %d of %d at %.1fx (%dx%d px) - %s", st.Page, st.TotalPages, st.Scale,
		result.Width, result.Height, st.Location)
	if result.Cached {
		text += " [cached]"
	}
	return mcp.NewToolResultImage(text, base64.StdEncoding.EncodeToString(result.PNG), "image/png"), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.pdfService.ServerInfo(s.config.ServerName, s.config.Version)
	return mcp.NewToolResultText(formatServerInfoResult(result)), nil
}

// jsonResult returns the summary text followed by the JSON form of v
func (s *Server) jsonResult(text string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode tool result", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(text + "\n" + string(data)), nil
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode", "directory", s.config.PDFDirectory)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server in server mode", "address", addr, "directory", s.config.PDFDirectory)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
