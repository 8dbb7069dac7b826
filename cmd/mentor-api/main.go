package main

import (
	"context"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	httpadapter "mentor/internal/adapters/http"
	"mentor/internal/adapters/llm"
	firestorestore "mentor/internal/adapters/storage/firestore"
	memstore "mentor/internal/adapters/storage/memory"
	sqlitestore "mentor/internal/adapters/storage/sqlite"
	"mentor/internal/app/chat"
	"mentor/internal/app/dialect"
	"mentor/internal/app/memory"
	"mentor/internal/app/sessions"
	"mentor/internal/app/skills"
	"mentor/internal/auth"
	"mentor/internal/config"
	"mentor/internal/domain"
	"mentor/internal/observability"
)

func main() {
	var (
		configPath string
		addr       string
	)

	root := &cobra.Command{
		Use:          "mentor-api",
		Short:        "API server for the TACL mentor assistant",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := observability.Logger()

	var llmClient domain.LLMClient
	if cfg.UseMockLLM {
		log.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Info("using Gemini LLM client", "model", cfg.ModelName)
		client, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			return err
		}
		llmClient = client
	}

	var state domain.StateStore
	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		store, err := firestorestore.NewStateStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return err
		}
		defer store.Close()
		state = store
	case "memory":
		log.Info("using in-memory storage")
		state = memstore.NewStateStore()
	default:
		log.Info("using SQLite storage", "path", cfg.SQLitePath)
		store, err := sqlitestore.NewStateStore(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		state = store
	}

	registry := skills.NewRegistry(ctx, state)
	memoryStore := memory.NewStore(ctx, state)
	sessionStore := sessions.NewStore(ctx, state)
	dialectSvc := dialect.NewService(ctx, state, llmClient)
	chatSvc := chat.NewService(llmClient, sessionStore, registry, memoryStore, dialectSvc)
	authMgr := auth.NewManager(cfg.AuthSecret)

	handler := httpadapter.NewServer(
		chatSvc, sessionStore, registry, memoryStore, dialectSvc,
		authMgr, cfg.AccessToken,
	)

	log.Info("mentor API listening", "addr", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, handler)
}
