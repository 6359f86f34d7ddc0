package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/camarero-ai/dinerbench/pkg/config"
	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/replay"
	"github.com/camarero-ai/dinerbench/pkg/report"
	"github.com/camarero-ai/dinerbench/pkg/scenario"
	"github.com/camarero-ai/dinerbench/pkg/suite"
)

type handlers struct {
	cfg *config.Config
}

// HandleScenarios implements the dinerbench/scenarios MCP tool.
func (h *handlers) HandleScenarios(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	category, _ := args["category"].(string)
	tag, _ := args["tag"].(string)

	store := scenario.NewStore(h.cfg.ScenariosDir)
	if _, err := store.LoadAll(); err != nil {
		return errorResult(fmt.Sprintf("load scenarios: %s", err)), nil
	}

	matches := store.Filter(scenario.Filter{Category: category, Tag: tag})
	listing := make([]map[string]any, 0, len(matches))
	for _, sc := range matches {
		listing = append(listing, map[string]any{
			"name":        sc.Name,
			"category":    sc.Category,
			"description": sc.Description,
			"priority":    sc.Priority,
			"tags":        sc.Tags,
			"ambiguous":   sc.IsAmbiguous(),
		})
	}

	data, _ := json.MarshalIndent(listing, "", "  ")
	return textResult(string(data)), nil
}

// HandleValidate implements the dinerbench/validate MCP tool.
func (h *handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	sc, errs := scenario.ValidateFile(path)
	if hasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}
	return textResult(fmt.Sprintf("✓ %s is valid (%d success conditions, max %d turns)",
		sc.Name, len(sc.SuccessConditions), sc.MaxTurns)), nil
}

// HandleRun implements the dinerbench/run MCP tool.
func (h *handlers) HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["scenario"].(string)
	if name == "" {
		return errorResult("scenario argument is required"), nil
	}

	store := scenario.NewStore(h.cfg.ScenariosDir)
	sc, err := store.Load(name)
	if err != nil {
		return errorResult(fmt.Sprintf("load scenario: %s", err)), nil
	}

	sut, err := h.loadReplay(args)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	runner := conversation.NewRunner(conversation.Options{})
	res := runner.Run(ctx, sc, sut)

	data, _ := json.MarshalIndent(res, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: res.Status != conversation.StatusSuccess,
	}, nil
}

// HandleSuite implements the dinerbench/suite MCP tool.
func (h *handlers) HandleSuite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	category, _ := args["category"].(string)

	store := scenario.NewStore(h.cfg.ScenariosDir)
	if _, err := store.LoadAll(); err != nil {
		return errorResult(fmt.Sprintf("load scenarios: %s", err)), nil
	}

	scenarios := make(map[string]*scenario.Scenario)
	for _, sc := range store.Filter(scenario.Filter{Category: category}) {
		scenarios[sc.Name] = sc
	}
	if len(scenarios) == 0 {
		return errorResult("no scenarios matched"), nil
	}

	sut, err := h.loadReplay(args)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	runner := &suite.Runner{
		Conversation: conversation.NewRunner(conversation.Options{}),
		ResultsDir:   h.cfg.ResultsDir,
		Store:        store,
	}
	out := runner.Run(ctx, scenarios, sut)
	compliance := report.Compliance(out.Results, h.cfg.Threshold)

	response := map[string]any{
		"summary":    out.Summary,
		"compliance": compliance,
		"run_id":     out.RunID,
	}
	data, _ := json.MarshalIndent(response, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: !compliance.IsCompliant,
	}, nil
}

// HandleSchema implements the dinerbench/schema MCP tool.
func (h *handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	var data []byte
	var err error

	switch schemaType {
	case "scenario":
		data, err = scenario.GenerateJSONSchema()
	case "result":
		data, err = conversation.GenerateResultJSONSchema()
	default:
		return errorResult(fmt.Sprintf("unknown schema type %q — use 'scenario' or 'result'", schemaType)), nil
	}

	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// loadReplay resolves the replay transcript to use as the system under
// test: the explicit argument first, then the configured replay dir.
func (h *handlers) loadReplay(args map[string]any) (*replay.System, error) {
	path, _ := args["replay"].(string)
	if path == "" {
		path = h.cfg.ReplayDir
	}
	if path == "" {
		return nil, fmt.Errorf("no replay transcript: pass 'replay' or configure replay_dir")
	}
	sut, err := replay.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load replay: %w", err)
	}
	return sut, nil
}

func hasErrors(errs []*scenario.ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

func formatErrors(errs []*scenario.ValidationError) string {
	var msgs []string
	for _, e := range errs {
		if e.Severity == "error" {
			msgs = append(msgs, fmt.Sprintf("[%s] %s", e.Phase, e.Message))
		}
	}
	return strings.Join(msgs, "; ")
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
