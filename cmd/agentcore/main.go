// Command agentcore wires and runs the LLM Agent Orchestrator Core:
// loads configuration, constructs the providers, tool registry, memory
// port, and Orchestrator, then either serves the demo HTTP interface or
// drives a single turn from the command line. Grounded on the teacher's
// cmd/cli/main.go cobra wiring.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/memory"
	"github.com/marschhuynh/agentcore/internal/domain/service"
	domaintool "github.com/marschhuynh/agentcore/internal/domain/tool"
	"github.com/marschhuynh/agentcore/internal/infrastructure/config"
	"github.com/marschhuynh/agentcore/internal/infrastructure/eventbus"
	agenthttp "github.com/marschhuynh/agentcore/internal/interfaces/http"
	"github.com/marschhuynh/agentcore/internal/infrastructure/llm"
	_ "github.com/marschhuynh/agentcore/internal/infrastructure/llm/anthropic"
	_ "github.com/marschhuynh/agentcore/internal/infrastructure/llm/openai"
	"github.com/marschhuynh/agentcore/internal/infrastructure/logger"
	"github.com/marschhuynh/agentcore/internal/infrastructure/mcp"
	infraMemory "github.com/marschhuynh/agentcore/internal/infrastructure/memory"
	"github.com/marschhuynh/agentcore/internal/infrastructure/monitoring"
	infratool "github.com/marschhuynh/agentcore/internal/infrastructure/tool"
)

const appName = "agentcore"

func main() {
	rootCmd := &cobra.Command{
		Use:   appName + " [message]",
		Short: "LLM Agent Orchestrator Core",
		Args:  cobra.ArbitraryArgs,
		RunE:  runOnce,
	}
	rootCmd.Flags().StringP("model", "m", "", "override the configured model")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "start the HTTP interface",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(appName + " v0.1.0")
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// core bundles every constructed dependency shared by both run modes.
type core struct {
	orch       *service.Orchestrator
	bus        *eventbus.Bus
	monitor    *monitoring.Monitor
	log        *zap.Logger
	cfg        *config.Config
	delegation *service.DelegationService
}

func buildCore(cfg *config.Config, log *zap.Logger) (*core, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	providers := make(map[string]llm.Provider, len(cfg.Providers))
	var primary llm.Provider
	for _, pc := range cfg.Providers {
		p, err := llm.Create(pc.ToLLMConfig(cfg.Retry), log)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		providers[pc.Name] = p
		if primary == nil {
			primary = p
		}
	}
	log.Info("providers constructed", zap.Int("count", len(providers)))

	registry := domaintool.NewInMemoryRegistry()
	if err := infratool.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("register builtins: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, sc := range cfg.MCP.Servers {
		if !sc.Enabled {
			continue
		}
		client, err := connectMCP(ctx, sc, log)
		if err != nil {
			log.Warn("mcp server unavailable, skipping", zap.String("server", sc.Name), zap.Error(err))
			continue
		}
		n, err := infratool.RegisterMCPTools(ctx, client, registry, log)
		if err != nil {
			log.Warn("mcp tool discovery failed", zap.String("server", sc.Name), zap.Error(err))
			continue
		}
		log.Info("mcp tools registered", zap.String("server", sc.Name), zap.Int("count", n))
	}

	executor := infratool.NewExecutor(registry, log)
	contextBuilder := service.NewContextBuilder(defaultIdentity)
	bus := eventbus.New(log, 256)
	monitor := monitoring.New(log)

	agentCfg := cfg.Agent.ToValueObject()
	newMemory := memoryFactory(cfg.Memory)

	delegation := service.NewDelegationService(
		noTemplates,
		registry,
		executor,
		primary,
		bus,
		monitor,
		log,
		agentCfg.MaxDelegationDepth,
		newMemory,
	)
	if err := infratool.RegisterDelegation(registry, delegation, 0, agentCfg.EnabledTools); err != nil {
		return nil, fmt.Errorf("register assign_task: %w", err)
	}

	orch := service.NewOrchestrator(agentCfg, newMemory(), registry, executor, primary, contextBuilder, bus, monitor, log)
	orch.SetMaxLLMCallsPerTurn(cfg.Agent.MaxLLMCallsPerTurn)
	if cfg.Agent.LoopDetectThreshold > 0 {
		orch.SetLoopDetector(cfg.Agent.LoopDetectThreshold)
	}
	if cfg.Agent.CostBudgetTokens > 0 {
		orch.SetCostGuard(cfg.Agent.CostBudgetTokens)
	}

	return &core{orch: orch, bus: bus, monitor: monitor, log: log, cfg: cfg, delegation: delegation}, nil
}

// noTemplates is the zero-configuration AgentTemplate lookup: no
// specialist templates are preconfigured, so assign_task always reports
// the template as not found until cmd/ is extended with a template file.
func noTemplates(id string) (service.AgentTemplate, bool) { return service.AgentTemplate{}, false }

// memoryFactory returns a constructor for a fresh memory.Port, used both
// for the top-level agent and for each delegated specialist (§4.7 gives
// each spawn its own memory scope). The file backend shares one file
// path across every conversation the process handles — FilePort keys by
// conversation id internally — so every call returns the same FilePort,
// whose single mutex then serializes every write to that file.
func memoryFactory(cfg config.MemoryConfig) func() memory.Port {
	if cfg.Backend == "file" {
		_ = os.MkdirAll(cfg.Dir, 0o755)
		path := filepath.Join(cfg.Dir, "conversations.json")
		port := infraMemory.NewFilePort(path)
		return func() memory.Port { return port }
	}
	return func() memory.Port { return infraMemory.NewInMemoryPort() }
}

func connectMCP(ctx context.Context, sc config.MCPServerConfig, log *zap.Logger) (*mcp.Client, error) {
	var transport mcp.Transport
	switch sc.Transport {
	case "http":
		transport = mcp.NewHTTPTransport(sc.Endpoint, nil)
	default:
		cmd := exec.CommandContext(ctx, sc.Command, sc.Args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		transport = mcp.NewStdioTransport(stdin, stdout)
	}

	client := mcp.NewClient(sc.Name, transport, log)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

const defaultIdentity = "You are an LLM agent orchestrator core: reason about the user's request, call tools when they help, and reply directly when they don't."

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPath: cfg.Log.OutputPath})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	c, err := buildCore(cfg, log)
	if err != nil {
		return fmt.Errorf("build core: %w", err)
	}

	server := agenthttp.NewServer(agenthttp.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}, c.orch, c.bus, c.monitor, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server start: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		os.Exit(1)
	}
	c.bus.Close()
	return nil
}

// runOnce sends one message (the joined positional args, or stdin if none
// were given) and prints the assistant's reply.
func runOnce(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logger.Config{Level: "warn", Format: "console", OutputPath: "stdout"})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.Agent.Model = m
	}

	c, err := buildCore(cfg, log)
	if err != nil {
		return fmt.Errorf("build core: %w", err)
	}
	defer c.bus.Close()

	message := strings.Join(args, " ")
	if message == "" {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			message = scanner.Text()
		}
	}
	if message == "" {
		return fmt.Errorf("no message given")
	}

	ctx := context.Background()
	reply, err := c.orch.Send(ctx, "cli", message, service.SendOptions{
		CancellationCtx:  ctx,
		ApprovalCallback: domaintool.AlwaysApprove,
	})
	if err != nil {
		return err
	}
	fmt.Println(reply.Content())
	return nil
}
