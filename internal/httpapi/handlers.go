package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// handleHealth reports liveness without ever touching the database, so it
// still answers 200 even when the Session Store is corrupted (spec §8
// "Corrupted DB on startup → monitoring server still responds 200 on
// /api/health").
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startedAt),
	})
}

func (s *Server) handleOverview(c echo.Context) error {
	ctx := c.Request().Context()
	sessions, chunks, knowledge, err := s.deps.Store.Counts(ctx)
	resp := OverviewResponse{
		ProjectID:      s.deps.Store.ProjectID(),
		Sessions:       sessions,
		Chunks:         chunks,
		KnowledgeFacts: knowledge,
		EventsBuffered: len(s.deps.Bus.Recent(0)),
		Healthy:        err == nil,
	}
	if s.deps.Spawner != nil {
		resp.ActiveAgents = len(s.deps.Spawner.Active())
	}
	return c.JSON(http.StatusOK, resp)
}

// handleMemory reports per-layer token usage and entry counts. Since the
// layers themselves are owned by whichever Orchestrator turn is in flight
// (not the HTTP server), this reports the durable counts the Session Store
// can answer without a live reference: chunk and knowledge-fact counts. A
// live ephemeral/retrieved snapshot is attached by SetLastUsage when a turn
// completes.
func (s *Server) handleMemory(c echo.Context) error {
	ctx := c.Request().Context()
	_, chunks, knowledge, _ := s.deps.Store.Counts(ctx)

	layers := []MemoryLayerUsage{
		{Layer: "retrieved", Entries: chunks},
		{Layer: "knowledge", Entries: knowledge},
	}
	s.mu.RLock()
	for i, l := range layers {
		if u, ok := s.lastUsage[l.Layer]; ok {
			layers[i].Tokens = u.Tokens
			layers[i].Cap = u.Cap
		}
	}
	for _, layer := range []string{"ephemeral", "query", "safety"} {
		if u, ok := s.lastUsage[layer]; ok {
			layers = append(layers, MemoryLayerUsage{Layer: layer, Tokens: u.Tokens, Cap: u.Cap, Entries: u.Entries})
		}
	}
	s.mu.RUnlock()

	return c.JSON(http.StatusOK, MemoryResponse{Layers: layers})
}

func (s *Server) handleTools(c echo.Context) error {
	ctx := c.Request().Context()
	resp := ToolsResponse{}

	if s.deps.Registry != nil {
		for _, name := range s.deps.Registry.List() {
			if t, err := s.deps.Registry.FindByName(name); err == nil {
				resp.Tools = append(resp.Tools, ToolInfo{
					Name:        t.Name(),
					Description: t.Description(),
					Sensitivity: string(t.SensitivityHint()),
				})
			}
		}
	}

	if stats, err := s.deps.Store.ToolStats(ctx); err == nil {
		for _, st := range stats {
			resp.Stats = append(resp.Stats, ToolStatDTO{
				ToolName:      st.ToolName,
				Invocations:   st.Invocations,
				Successes:     st.Successes,
				AvgDurationMS: st.AvgDurationMS,
			})
		}
	}

	if logs, err := s.deps.Store.RecentLogs(ctx, 50); err == nil {
		for _, l := range logs {
			resp.RecentExecutions = append(resp.RecentExecutions, RecentExecution{
				SessionID: l.SessionID,
				ToolName:  l.ToolName,
				Success:   l.Success,
				Error:     l.Error,
				Timestamp: l.Timestamp,
			})
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSessions(c echo.Context) error {
	ctx := c.Request().Context()
	limit := queryInt(c, "limit", 50)
	sessions, err := s.deps.Store.ListSessions(ctx, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list sessions")
	}

	resp := SessionsResponse{}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			ID:         sess.ID,
			Mode:       string(sess.Mode),
			Status:     string(sess.Status),
			StartedAt:  sess.StartedAt,
			EndedAt:    sess.EndedAt,
			TurnCount:  sess.TurnCount,
			TokensUsed: sess.TokensUsed,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// handlePipeline renders a coarse node/edge graph of the fixed C1-C12
// component topology plus any currently active mini-agent tasks as extra
// nodes, matching spec §4.12's "nodes[], edges[], stats" shape without
// inventing a richer execution-trace format the spec doesn't describe.
func (s *Server) handlePipeline(c echo.Context) error {
	resp := PipelineResponse{Stats: map[string]int{}}
	components := []string{"orchestrator", "planner", "executor", "memory", "tools", "approval", "modelclient", "miniagent"}
	for _, name := range components {
		resp.Nodes = append(resp.Nodes, PipelineNode{ID: name, Label: name, Kind: "component"})
	}
	resp.Edges = append(resp.Edges,
		PipelineEdge{From: "orchestrator", To: "planner"},
		PipelineEdge{From: "orchestrator", To: "memory"},
		PipelineEdge{From: "orchestrator", To: "modelclient"},
		PipelineEdge{From: "orchestrator", To: "executor"},
		PipelineEdge{From: "executor", To: "approval"},
		PipelineEdge{From: "executor", To: "tools"},
		PipelineEdge{From: "orchestrator", To: "miniagent"},
	)

	if s.deps.Spawner != nil {
		for _, inst := range s.deps.Spawner.Active() {
			id := "agent:" + inst.TaskID
			resp.Nodes = append(resp.Nodes, PipelineNode{ID: id, Label: inst.TaskID, Kind: "agent", Status: string(inst.Status)})
			resp.Edges = append(resp.Edges, PipelineEdge{From: "miniagent", To: id})
		}
		resp.Stats["active_agents"] = len(s.deps.Spawner.Active())
	}
	resp.Stats["events_buffered"] = len(s.deps.Bus.Recent(0))
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAgents(c echo.Context) error {
	resp := AgentsResponse{}
	if s.deps.Spawner != nil {
		for _, inst := range s.deps.Spawner.Active() {
			resp.Agents = append(resp.Agents, AgentInstance{
				TaskID:    inst.TaskID,
				Type:      string(inst.Task.Type),
				Status:    string(inst.Status),
				Heartbeat: inst.Heartbeat,
				ToolsUsed: inst.ToolsUsed,
			})
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleProjects(c echo.Context) error {
	resp := ProjectsResponse{}
	if s.deps.Projects != nil {
		for _, m := range s.deps.Projects.List() {
			resp.Projects = append(resp.Projects, ProjectSummary{
				ProjectID: m.ProjectID,
				RootPath:  m.RootPath,
				UpdatedAt: m.UpdatedAt,
			})
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleEvents(c echo.Context) error {
	limit := queryInt(c, "limit", 100)
	events := s.deps.Bus.Recent(limit)
	resp := EventsResponse{}
	for _, e := range events {
		resp.Events = append(resp.Events, EventDTO{
			Seq:       e.Seq,
			Topic:     e.Topic,
			Event:     e.Name,
			Data:      e.Payload,
			Timestamp: e.Timestamp,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMetricsClear(c echo.Context) error {
	s.deps.Bus.Clear()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleWS(c echo.Context) error {
	if s.deps.Hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "websocket hub not attached")
	}
	topics := c.QueryParams()["topic"]
	if err := s.deps.Hub.ServeWS(c.Response(), c.Request(), topics); err != nil {
		s.deps.Logger.Warn("monitor: websocket upgrade failed", zap.Error(err))
		return err
	}
	return nil
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
