// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hylla/projboard/internal/adapters/server/common"
	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// defaultActivityLimit bounds activity listings without an explicit limit.
const defaultActivityLimit = 25

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with project tools and optional activity tools.
func NewHandler(cfg Config, projects common.ProjectService, activity common.ActivityService) (*Handler, error) {
	if projects == nil {
		return nil, fmt.Errorf("project service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerProjectTools(mcpSrv, projects)
	if activity != nil {
		registerActivityTools(mcpSrv, activity)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r.WithContext(app.WithActor(r.Context(), app.ActorMCP)))
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "projboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerProjectTools registers list/add/move project tools.
func registerProjectTools(srv *mcpserver.MCPServer, projects common.ProjectService) {
	statuses := make([]string, 0, len(domain.ProjectStatuses()))
	for _, status := range domain.ProjectStatuses() {
		statuses = append(statuses, string(status))
	}

	srv.AddTool(
		mcp.NewTool(
			"projboard.list_projects",
			mcp.WithDescription("List board projects, optionally filtered by status."),
			mcp.WithString("status", mcp.Description("Filter by list"), mcp.Enum(statuses...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := projects.ListProjects(ctx, common.ListProjectsRequest{
				Status: req.GetString("status", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"projects": rows,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_projects result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"projboard.add_project",
			mcp.WithDescription("Add one active project. The board form rules apply."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Project title, at least 2 characters")),
			mcp.WithString("description", mcp.Required(), mcp.Description("Project description")),
			mcp.WithNumber("people", mcp.Required(), mcp.Description("Number of people assigned")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			description, err := req.RequireString("description")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			people, err := req.RequireFloat("people")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			project, err := projects.AddProject(ctx, common.AddProjectRequest{
				Title:       title,
				Description: description,
				People:      peopleNumber(people),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(project)
			if err != nil {
				return nil, fmt.Errorf("encode add_project result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"projboard.move_project",
			mcp.WithDescription("Move one project to another list. Moving to its current list is a no-op."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Project id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target list"), mcp.Enum(statuses...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			moved, err := projects.MoveProject(ctx, common.MoveProjectRequest{
				ID:     int64(id),
				Status: status,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(moved)
			if err != nil {
				return nil, fmt.Errorf("encode move_project result: %w", err)
			}
			return result, nil
		},
	)
}

// registerActivityTools registers the activity ledger tool.
func registerActivityTools(srv *mcpserver.MCPServer, activity common.ActivityService) {
	srv.AddTool(
		mcp.NewTool(
			"projboard.list_activity",
			mcp.WithDescription("List recorded project changes, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			events, err := activity.ListActivity(ctx, req.GetInt("limit", defaultActivityLimit))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"events": events,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_activity result: %w", err)
			}
			return result, nil
		},
	)
}

// peopleNumber renders a tool number argument as the raw people value.
func peopleNumber(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrActivityUnavailable):
		return mcp.NewToolResultError("not_implemented: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
