package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/start-out/starter/pkg/engine"
	"github.com/start-out/starter/pkg/graph"
	"github.com/start-out/starter/pkg/providers"
	"github.com/start-out/starter/pkg/report"
	"github.com/start-out/starter/pkg/schema"
)

// HandleValidate implements the starter/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, _ := req.GetArguments()["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	sf, errs := schema.ValidateFile(path)
	if len(errs) > 0 {
		return errorResult(formatErrors(errs)), nil
	}
	if _, err := graph.Resolve(sf); err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(fmt.Sprintf("✓ %s is valid (%d tools, %d modules)",
		path, len(sf.Tools), len(sf.Modules))), nil
}

// HandlePlan implements the starter/plan MCP tool.
func HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, _ := req.GetArguments()["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	sf, errs := schema.ValidateFile(path)
	if len(errs) > 0 {
		return errorResult(formatErrors(errs)), nil
	}
	plan, err := graph.Resolve(sf)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	type planWave []string
	response := struct {
		Order  []string            `json:"order"`
		Waves  []planWave          `json:"waves"`
		Groups map[string][]string `json:"alt_groups,omitempty"`
	}{Groups: map[string][]string{}}
	for _, n := range plan.Order {
		response.Order = append(response.Order, n.Name)
	}
	for _, wave := range plan.Waves {
		var w planWave
		for _, n := range wave {
			w = append(w, n.Name)
		}
		response.Waves = append(response.Waves, w)
	}
	for _, g := range plan.Groups {
		response.Groups[g.Primary] = g.Members
	}

	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleUp implements the starter/up MCP tool. Real mode must be requested
// explicitly; the default never touches the machine.
func HandleUp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	mode, _ := args["mode"].(string)
	if mode == "" {
		mode = "dry-run"
	}
	if mode != "real" && mode != "dry-run" {
		return errorResult(fmt.Sprintf("unknown mode %q, use real or dry-run", mode)), nil
	}

	sf, errs := schema.ValidateFile(path)
	if len(errs) > 0 {
		return errorResult(formatErrors(errs)), nil
	}

	var out bytes.Buffer
	opts := engine.Options{Out: &out, Collector: providers.DryRunCollector{}}
	if mode == "dry-run" {
		opts.DryRun = true
		opts.Runner = &providers.DryRunRunner{}
	}
	eng, err := engine.New(sf, opts)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	run, err := eng.Up(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	var summary bytes.Buffer
	report.Render(&summary, run)
	if run.Failed() {
		return errorResult(summary.String()), nil
	}
	return textResult(summary.String()), nil
}

// HandleSchema implements the starter/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := schema.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}

func formatErrors(errs []*schema.ValidationError) string {
	var b strings.Builder
	for _, e := range errs {
		fmt.Fprintf(&b, "%s\n", e.Error())
	}
	return b.String()
}
