package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/budget"
	"github.com/pario-ai/tokmon/pkg/models"
)

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	Get(ctx context.Context, date models.Date) (*models.Snapshot, error)
	List(ctx context.Context, r models.DateRange) ([]models.Snapshot, error)
	Latest(ctx context.Context) (*models.Snapshot, error)
}

// RunQuerier reads the cycle run log.
type RunQuerier interface {
	Query(ctx context.Context, opts models.RunQueryOpts) ([]models.CycleRun, error)
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	snapshots SnapshotReader
	runs      RunQuerier
	enforcer  *budget.Enforcer
	today     func() models.Date
	version   string
	logger    *zap.Logger
}

// New creates a new MCP Server. runs and enforcer may be nil.
func New(snapshots SnapshotReader, runs RunQuerier, enforcer *budget.Enforcer, today func() models.Date, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		snapshots: snapshots,
		runs:      runs,
		enforcer:  enforcer,
		today:     today,
		version:   version,
		logger:    logger,
	}
}

// Run reads JSON-RPC requests from r, one per line, and writes responses
// to w. It returns when r is exhausted or ctx is done.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, maxLineBytes), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("malformed request", zap.Error(err))
			s.writeResponse(w, *failure(nil, CodeParseError, "parse error"))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(w, *resp)
		}
	}
	return scanner.Err()
}

// dispatch returns nil for notifications.
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case MethodInitialize:
		return success(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: "tokmon", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case MethodInitialized:
		return nil
	case MethodToolsList:
		return success(req.ID, ToolsListResult{Tools: allTools})
	case MethodToolsCall:
		return s.callTool(ctx, req)
	default:
		if req.ID == nil {
			return nil
		}
		return failure(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) callTool(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return success(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	result := handler(ctx, s, params.Arguments)
	s.logger.Debug("tool call", zap.String("tool", params.Name), zap.Bool("is_error", result.IsError))
	return success(req.ID, result)
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}
