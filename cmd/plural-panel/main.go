// plural-panel is a local server that hosts a chat panel for the Claude Code
// CLI: it spawns the CLI per turn, normalizes its stream-json output into
// replayable conversation events, and serves them to a webview over a
// websocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhubert/plural-panel/claude"
	"github.com/zhubert/plural-panel/cli"
	"github.com/zhubert/plural-panel/config"
	"github.com/zhubert/plural-panel/conversation"
	"github.com/zhubert/plural-panel/logger"
	"github.com/zhubert/plural-panel/panel"
	"github.com/zhubert/plural-panel/paths"
	"github.com/zhubert/plural-panel/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real config lives in config.yaml
	godotenv.Load()

	if err := cli.ValidateRequired(cli.DefaultPrerequisites()); err != nil {
		return err
	}

	logPath, err := logger.DefaultLogPath()
	if err != nil {
		return fmt.Errorf("failed to resolve log path: %w", err)
	}
	if err := logger.Init(logPath); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	log := logger.WithComponent("main")
	if paths.IsLegacyLayout() {
		log.Debug("using legacy flat data layout")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if os.Getenv("PLURAL_PANEL_DEBUG") != "" {
		cfg.SetDebug(true)
	}
	if cfg.GetDebug() {
		logger.SetDebug(true)
	}

	store, err := conversation.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	factory := panel.RunnerFactory(func(sessionID string, resume bool) claude.Runner {
		mcpServers := make([]claude.MCPServerConfig, 0)
		for _, s := range cfg.GetMCPServersForProject(workingDir) {
			mcpServers = append(mcpServers, claude.MCPServerConfig{
				Name:    s.Name,
				Command: s.Command,
				Args:    s.Args,
				Env:     s.Env,
			})
		}
		runner := claude.NewCLIRunner(sessionID, claude.CLIOptions{
			Model:           cfg.GetModel(),
			WorkingDir:      workingDir,
			AllowedTools:    cfg.GetAllowedToolsForProject(workingDir),
			SkipPermissions: cfg.GetYoloMode(),
			Thinking:        string(cfg.GetThinkingLevel()),
			MCPServers:      mcpServers,
		}, logger.WithSession(sessionID))
		if resume {
			runner.MarkSessionStarted()
		}
		return runner
	})

	addr := cfg.GetListenAddr()
	if envAddr := os.Getenv("PLURAL_PANEL_ADDR"); envAddr != "" {
		addr = envAddr
	}

	srv := server.New(cfg, store, factory, logger.WithComponent("server"))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("panel server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
