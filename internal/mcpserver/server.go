// Package mcpserver exposes classification and extraction as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-inbox/internal/classifier"
	"github.com/spigell/job-inbox/internal/extractor"
	"github.com/spigell/job-inbox/internal/tracker"
)

const (
	ToolClassify     = "classify_email"
	ToolExtract      = "extract_application"
	ToolApplications = "list_applications"
)

// Applications lists stored records.
type Applications interface {
	Applications(ctx context.Context) ([]tracker.Application, error)
}

type Options struct {
	Name    string
	Version string
	Logger  *zap.Logger
	// Store is optional. Without it list_applications is not registered.
	Store Applications
}

type handler struct {
	logger *zap.Logger
	store  Applications
}

var emailProperties = map[string]interface{}{
	"id":        map[string]interface{}{"type": "string", "description": "Message identifier"},
	"thread_id": map[string]interface{}{"type": "string", "description": "Conversation identifier"},
	"from":      map[string]interface{}{"type": "string", "description": "Raw From header, e.g. \"Acme Careers <jobs@acme.com>\""},
	"subject":   map[string]interface{}{"type": "string", "description": "Subject line"},
	"date":      map[string]interface{}{"type": "string", "description": "RFC3339 timestamp"},
	"body":      map[string]interface{}{"type": "string", "description": "Plain text body"},
	"html":      map[string]interface{}{"type": "string", "description": "HTML body, used for link discovery"},
}

// New builds the MCP server with every tool registered.
func New(opts Options) *server.MCPServer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := server.NewMCPServer(opts.Name, opts.Version)
	h := &handler{logger: opts.Logger, store: opts.Store}

	classify := mcp.NewTool(ToolClassify,
		mcp.WithDescription("Classify a job application email into a category and tracker status"),
	)
	classify.InputSchema = mcp.ToolInputSchema{
		Type:       "object",
		Properties: emailProperties,
		Required:   []string{"subject", "body"},
	}
	s.AddTool(classify, h.classify)

	extractProps := make(map[string]interface{}, len(emailProperties)+1)
	for k, v := range emailProperties {
		extractProps[k] = v
	}
	extractProps["category"] = map[string]interface{}{
		"type":        "string",
		"description": "Category to use instead of classifying the email",
		"enum":        categoryNames(),
	}

	extract := mcp.NewTool(ToolExtract,
		mcp.WithDescription("Extract an application record (company, position, status, follow up) from an email"),
	)
	extract.InputSchema = mcp.ToolInputSchema{
		Type:       "object",
		Properties: extractProps,
		Required:   []string{"subject", "body"},
	}
	s.AddTool(extract, h.extract)

	if opts.Store != nil {
		list := mcp.NewTool(ToolApplications,
			mcp.WithDescription("List tracked job applications"),
		)
		list.InputSchema = mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{"type": "string", "description": "Only return applications in this status (optional)"},
			},
		}
		s.AddTool(list, h.applications)
	}

	return s
}

// Serve blocks on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (h *handler) classify(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var email tracker.Email
	if err := decodeArgs(request.Params.Arguments, &email); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := classifier.Explain(email)
	h.logger.Debug("mcp classify", zap.String("category", string(result.Category)))

	return jsonResult(map[string]string{
		"category": string(result.Category),
		"status":   string(tracker.StatusFor(result.Category)),
		"pattern":  result.Pattern,
	})
}

func (h *handler) extract(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		tracker.Email
		Category string `json:"category"`
	}
	if err := decodeArgs(request.Params.Arguments, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	category := classifier.Classify(args.Email)
	if args.Category != "" {
		parsed, ok := tracker.ParseCategory(args.Category)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", args.Category)), nil
		}
		category = parsed
	}

	app := extractor.Extract(args.Email, category)
	h.logger.Debug("mcp extract", zap.String("company", app.Company), zap.String("position", app.Position))

	return jsonResult(app)
}

func (h *handler) applications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Status string `json:"status"`
	}
	if err := decodeArgs(request.Params.Arguments, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	apps, err := h.store.Applications(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing applications: %v", err)), nil
	}

	filtered := make([]tracker.Application, 0, len(apps))
	for _, app := range apps {
		if args.Status != "" && string(app.Status) != args.Status {
			continue
		}
		filtered = append(filtered, app)
	}

	return jsonResult(filtered)
}

func decodeArgs(raw any, target any) error {
	if raw == nil {
		return nil
	}
	if _, ok := raw.(map[string]interface{}); !ok {
		return fmt.Errorf("invalid arguments format")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Squash:  true,
		Result:  target,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func categoryNames() []string {
	categories := tracker.Categories()
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	return names
}
