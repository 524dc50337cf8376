package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flexicli/flexicli/internal/config"
	"github.com/flexicli/flexicli/internal/memory"
	"github.com/flexicli/flexicli/internal/session"
	"github.com/flexicli/flexicli/internal/tokenbudget"
	"github.com/flexicli/flexicli/internal/tools"
	"github.com/flexicli/flexicli/internal/vectorstore"
)

// fullPermissions grants the top-level interactive/non-interactive session
// every registered tool; mini-agents spawned from a turn receive the
// narrower intersection their template defines (spec §4.11 step 2).
func fullPermissions(registry *tools.Registry) tools.Permissions {
	return tools.Permissions{
		Allowed:          registry.List(),
		NetworkAccess:    true,
		FilesystemAccess: "write",
		DangerousOps:     true,
		GitOperations:    true,
		MaxToolCalls:     50,
	}
}

// runOneTurn drives a single Orchestrator turn for query, reusing ephemeral
// and knowledge state across calls within a REPL so each exchange sees the
// conversation so far (spec §4.2, §4.3).
func runOneTurn(ctx context.Context, d *deps, sess *session.Session, ephemeral *memory.Ephemeral, mode tokenbudget.Mode, query string) (string, error) {
	knowledge, err := d.store.QueryKnowledge(ctx, "", 50)
	if err != nil {
		d.logger.Warn("failed to load knowledge facts, continuing without them", zap.Error(err))
	}
	facts := make([]memory.KnowledgeFact, 0, len(knowledge))
	for _, k := range knowledge {
		facts = append(facts, memory.KnowledgeFact{
			Key:             k.Key,
			Value:           k.Value,
			Category:        k.Category,
			ImportanceScore: k.ImportanceScore,
		})
	}

	layers := memory.Layers{
		Ephemeral: ephemeral,
		Searcher:  vectorstore.MemorySearcher{Store: d.vecStore, Ctx: ctx},
		Knowledge: facts,
		RepoRoot:  d.cwd,
	}

	result, err := d.orch.RunTurn(ctx, sess, mode, layers, query, fullPermissions(d.registry))
	if err != nil {
		return "", err
	}
	if result.Aborted {
		return "", fmt.Errorf("operation denied")
	}
	return result.FinalAnswer, nil
}

func modeFromFlag(cfg *config.Config, flag string) tokenbudget.Mode {
	if flag != "" {
		switch tokenbudget.Mode(flag) {
		case tokenbudget.ModeDirect, tokenbudget.ModeConcise, tokenbudget.ModeDeep:
			return tokenbudget.Mode(flag)
		}
	}
	return tokenbudget.FromConfig(cfg)
}
