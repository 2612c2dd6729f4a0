// Command mcr is a thin CLI over the MCR session engine: create sessions,
// assert natural-language facts, ask questions, retract clauses.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcr/internal/config"
	"mcr/internal/engine"
	"mcr/internal/logging"
	"mcr/internal/provider"
	"mcr/internal/session"
	"mcr/internal/store"
	"mcr/internal/translate"
)

var (
	cfgPath      string
	verbose      bool
	plainAnswers bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "mcr",
		Short: "Natural language knowledge base sessions backed by a logic engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if verbose {
				level = "debug"
			}
			logger, err = logging.New(level, cfg.Logging.Development)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "mcr.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSessionsCmd(), newAssertCmd(), newQueryCmd(), newRetractCmd(), newDemoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newManager assembles the session engine from config. The returned cleanup
// flushes sessions and closes the store.
func newManager(ctx context.Context) (*session.Manager, func(), error) {
	llm, err := buildProvider(ctx)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Store.DatabasePath, logger)
	if err != nil {
		return nil, nil, err
	}

	mgr, err := session.NewManager(ctx, session.Options{
		EngineConfig: engine.Config{
			QueryTimeout:  cfg.GetQueryTimeout(),
			SolutionLimit: cfg.Engine.SolutionLimit,
		},
		Strategy:     cfg.Translate.Strategy,
		MaxAttempts:  cfg.Translate.MaxAttempts,
		ExampleCount: cfg.Translate.ExampleCount,
		LLM:          llm,
		Store:        st,
		OntologyPath: cfg.Session.OntologyPath,
		PlainAnswers: plainAnswers,
		Logger:       logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := mgr.Close(ctx); err != nil {
			logger.Warn("failed to flush sessions", zap.Error(err))
		}
		st.Close()
	}
	return mgr, cleanup, nil
}

func buildProvider(ctx context.Context) (translate.LLMClient, error) {
	switch cfg.LLM.Provider {
	case "mock":
		return demoProvider(), nil
	case "gemini":
		return provider.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.GetLLMTimeout(), logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
	}
}
