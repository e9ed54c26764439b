package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/render"
	"github.com/pario-ai/tokmon/pkg/trend"
)

// Tool argument structs.

type dateArgs struct {
	Date string `json:"date"`
}

type daysArgs struct {
	Days int `json:"days"`
}

type trendArgs struct {
	Window int `json:"window"`
}

type runsArgs struct {
	Job    string `json:"job"`
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"tokmon_usage":   handleUsage,
	"tokmon_cost":    handleCost,
	"tokmon_trend":   handleTrend,
	"tokmon_history": handleHistory,
	"tokmon_runs":    handleRuns,
	"tokmon_budget":  handleBudget,
}

var dateSchema = map[string]any{
	"type":        "string",
	"description": "Day in YYYY-MM-DD format (optional, defaults to the latest snapshot)",
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "tokmon_usage",
		Description: "Show token usage per source from a daily snapshot.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"date": dateSchema},
		},
	},
	{
		Name:        "tokmon_cost",
		Description: "Show estimated cost per model from a daily snapshot.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"date": dateSchema},
		},
	},
	{
		Name:        "tokmon_trend",
		Description: "Summarize tokens and cost over a trailing window, with day-over-day deltas and the previous window for comparison.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"window": map[string]any{
					"type":        "integer",
					"description": "Window length in days (optional, defaults to 7)",
				},
			},
		},
	},
	{
		Name:        "tokmon_history",
		Description: "List stored daily snapshots.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"days": map[string]any{
					"type":        "integer",
					"description": "Number of days ending today (optional, defaults to 7)",
				},
			},
		},
	},
	{
		Name:        "tokmon_runs",
		Description: "List recent scheduled cycle runs, newest first.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job": map[string]any{
					"type":        "string",
					"description": "Filter by job: snapshot or notify (optional)",
				},
				"status": map[string]any{
					"type":        "string",
					"description": "Filter by status: succeeded or failed (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum rows (optional, defaults to 50)",
				},
			},
		},
	},
	{
		Name:        "tokmon_budget",
		Description: "Show spend against each configured cost threshold.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func decode(rawArgs json.RawMessage, v any) {
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, v)
	}
}

// snapshotFor loads the snapshot named by args, or the latest one.
func (s *Server) snapshotFor(ctx context.Context, rawArgs json.RawMessage) (*models.Snapshot, *ToolCallResult) {
	var args dateArgs
	decode(rawArgs, &args)

	var (
		snap *models.Snapshot
		err  error
	)
	if args.Date != "" {
		date, perr := models.ParseDate(args.Date)
		if perr != nil {
			res := errorResult("Invalid date (use YYYY-MM-DD): " + perr.Error())
			return nil, &res
		}
		snap, err = s.snapshots.Get(ctx, date)
	} else {
		snap, err = s.snapshots.Latest(ctx)
	}
	if err != nil {
		res := errorResult("Error loading snapshot: " + err.Error())
		return nil, &res
	}
	if snap == nil {
		res := textResult("No snapshot found.")
		return nil, &res
	}
	return snap, nil
}

func handleUsage(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	snap, res := s.snapshotFor(ctx, rawArgs)
	if res != nil {
		return *res
	}
	return textResult(formatUsage(snap))
}

func handleCost(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	snap, res := s.snapshotFor(ctx, rawArgs)
	if res != nil {
		return *res
	}
	return textResult("Estimated cost for " + snap.Date.String() + "\n\n" + render.CostTable(snap.Cost))
}

func handleTrend(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args trendArgs
	decode(rawArgs, &args)
	window := args.Window
	if window < 1 {
		window = trend.DefaultWindow
	}

	// Two windows of history feed the comparison.
	end := s.today()
	history, err := s.snapshots.List(ctx, models.LastDays(end, 2*window))
	if err != nil {
		return errorResult("Error loading history: " + err.Error())
	}
	if len(history) == 0 {
		return textResult("No snapshots recorded yet.")
	}
	return textResult(render.Trend(trend.Compare(history, window, end)))
}

func handleHistory(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args daysArgs
	decode(rawArgs, &args)
	days := args.Days
	if days < 1 {
		days = 7
	}

	snaps, err := s.snapshots.List(ctx, models.LastDays(s.today(), days))
	if err != nil {
		return errorResult("Error loading history: " + err.Error())
	}
	if len(snaps) == 0 {
		return textResult("No snapshots recorded yet.")
	}
	var b strings.Builder
	if err := render.HistoryTable(&b, snaps); err != nil {
		return errorResult("Error rendering history: " + err.Error())
	}
	return textResult(b.String())
}

func handleRuns(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.runs == nil {
		return textResult("Run logging is not configured.")
	}
	var args runsArgs
	decode(rawArgs, &args)

	runs, err := s.runs.Query(ctx, models.RunQueryOpts{
		Job:    args.Job,
		Status: models.CycleStatus(args.Status),
		Limit:  args.Limit,
	})
	if err != nil {
		return errorResult("Error querying runs: " + err.Error())
	}
	if len(runs) == 0 {
		return textResult("No cycle runs recorded.")
	}
	var b strings.Builder
	if err := render.RunsTable(&b, runs); err != nil {
		return errorResult("Error rendering runs: " + err.Error())
	}
	return textResult(b.String())
}

func handleBudget(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.enforcer == nil {
		return textResult("No cost thresholds are configured.")
	}
	statuses, err := s.enforcer.Status(ctx, s.today())
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	var b strings.Builder
	if err := render.BudgetTable(&b, statuses); err != nil {
		return errorResult("Error rendering budget status: " + err.Error())
	}
	return textResult(b.String())
}
