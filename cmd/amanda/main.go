package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/auccello/amanda-go/internal/agent"
	"github.com/auccello/amanda-go/internal/config"
	"github.com/auccello/amanda-go/internal/history"
	"github.com/auccello/amanda-go/internal/llm"
	"github.com/auccello/amanda-go/internal/logger"
	"github.com/auccello/amanda-go/internal/pipeline"
	"github.com/auccello/amanda-go/internal/server"
	"github.com/auccello/amanda-go/internal/store"
	"github.com/auccello/amanda-go/pkg/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	ctx := context.Background()

	// Storage is not optional: refuse to serve without it.
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.L.Error("failed to open turn store", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		logger.L.Error("failed to initialize turn store", "error", err)
		os.Exit(1)
	}

	registry := tools.NewToolManager()
	registry.RegisterTool(tools.HelpTool{})
	registry.RegisterTool(tools.AboutTool{})
	registry.RegisterTool(tools.NewGeocodeTool(cfg.Tools))
	registry.RegisterTool(tools.NewWeatherTool(cfg.Tools))

	mcpClients := agent.RegisterMCPServers(ctx, cfg.MCPServers, registry)
	defer func() {
		for _, c := range mcpClients {
			if err := c.Close(); err != nil {
				logger.L.Warn("MCP client close error", "error", err)
			}
		}
	}()

	ag := agent.New(llm.NewClient(cfg.LLM), cfg.LLM, registry)
	hist := history.NewReconstructor(st)
	pipe := pipeline.New(hist, ag, st)
	srv := server.New(pipe, hist, cfg.Frontend.Dir)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", addr)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		logger.L.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
