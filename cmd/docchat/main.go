package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/chunker"
	"github.com/xxxsen/docchat/internal/config"
	"github.com/xxxsen/docchat/internal/filestore"
	"github.com/xxxsen/docchat/internal/handler"
	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/job"
	"github.com/xxxsen/docchat/internal/leader"
	"github.com/xxxsen/docchat/internal/middleware"
	"github.com/xxxsen/docchat/internal/rag"
	"github.com/xxxsen/docchat/internal/schedule"
	"github.com/xxxsen/docchat/internal/service"
	"github.com/xxxsen/docchat/internal/tools"
	"github.com/xxxsen/docchat/internal/voice"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "docchat backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docchat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootLogger := logutil.GetLogger(ctx)
	rootLogger.Info("starting server", zap.Int("port", cfg.Port))

	store, err := index.Open(index.Config{
		DSN:       cfg.Database.DSN,
		Table:     cfg.Database.Table,
		VectorDim: cfg.Database.VectorDim,
		EfSearch:  cfg.Database.EfSearch,
	})
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	defer store.Close()

	// Only the primary worker runs the one-time schema warm-up;
	// secondaries on the same host skip it.
	elector := leader.New(cfg.LockFile)
	err = elector.Elect(ctx, leader.Callbacks{
		OnPrimary: func(ctx context.Context) error {
			warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return store.EnsureSchema(warmCtx)
		},
	})
	if err != nil {
		rootLogger.Warn("index warm-up failed, retrieval degrades until the index is reachable", zap.Error(err))
	}
	defer elector.Release()

	chatProvider, err := ai.NewChatProvider(cfg.AI.Chat.Provider, cfg.AI.Chat.Data)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embed.Provider, cfg.AI.Embed.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	rerankProvider, err := ai.NewRerankProvider(cfg.AI.Rerank.Provider, cfg.AI.Rerank.Data)
	if err != nil {
		return fmt.Errorf("init rerank provider: %w", err)
	}

	embedder := ai.NewEmbedder(embedProvider, cfg.AI.Embed.Model, cfg.Retrieval.EmbedBatchSize)
	reranker := ai.NewReranker(rerankProvider, cfg.AI.Rerank.Model, cfg.Retrieval.RerankTopK)

	registry := tools.NewRegistry()
	registry.Register(tools.NewRetrieveTool(embedder, reranker, store, cfg.Retrieval.SearchK))
	searchCfg := tools.SearchConfig{}
	if err := decodeToolConfig(cfg.Tools.Search, &searchCfg); err != nil {
		return fmt.Errorf("decode search tool config: %w", err)
	}
	registry.Register(tools.NewSearchTool(searchCfg))
	weatherCfg := tools.WeatherConfig{}
	if err := decodeToolConfig(cfg.Tools.Weather, &weatherCfg); err != nil {
		return fmt.Errorf("decode weather tool config: %w", err)
	}
	registry.Register(tools.NewWeatherTool(weatherCfg))

	chain := rag.NewChain(chatProvider, cfg.AI.Chat.Model, registry, ai.DefaultRetryConfig())
	chatService := service.NewChatService(chain)

	var files filestore.Store
	if cfg.FileStore.Type != "" {
		files, err = filestore.New(filestore.Config{Type: cfg.FileStore.Type, Data: cfg.FileStore.Data})
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
	}
	ck := chunker.New(chunker.WithWordLimit(cfg.Retrieval.ChunkWordLimit))
	ingestService := service.NewIngestService(ck, embedder, store, files)

	voiceHandler, err := buildVoiceHandler(cfg)
	if err != nil {
		return fmt.Errorf("init voice handler: %w", err)
	}

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(ingestService),
		Chat:      handler.NewChatHandler(chatService),
		Voice:     voiceHandler,
		Health:    handler.NewHealthHandler(store),
	}

	scheduler := schedule.NewCronScheduler()
	spec := cfg.Jobs.IndexHealthSpec
	if spec == "" {
		spec = "*/5 * * * *"
	}
	if err := scheduler.AddJob(job.NewIndexHealthJob(store), spec); err != nil {
		return fmt.Errorf("schedule index health job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	middlewares := []gin.HandlerFunc{
		middleware.RequestID(),
		middleware.CORS(cfg.CORSOrigins),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.RateLimitSeconds > 0 {
		middlewares = append(middlewares, middleware.RateLimit(time.Duration(cfg.RateLimitSeconds)*time.Second))
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(middlewares...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	rootLogger.Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	rootLogger.Info("server stopping...")
	return nil
}

func buildVoiceHandler(cfg *config.Config) (*handler.VoiceHandler, error) {
	liveCfg := voice.GeminiLiveConfig{}
	if cfg.Voice.Enabled {
		if err := decodeToolConfig(cfg.Voice.Data, &liveCfg); err != nil {
			return nil, err
		}
	}
	dialer := voice.NewGeminiLiveDialer(liveCfg)

	var analyzer *voice.Analyzer
	genProvider, err := ai.NewGenProvider(cfg.AI.Analysis.Provider, cfg.AI.Analysis.Data)
	if err == nil {
		analyzer = voice.NewAnalyzer(genProvider, cfg.AI.Analysis.Model)
	}
	return handler.NewVoiceHandler(dialer, analyzer), nil
}

func decodeToolConfig(src interface{}, dst interface{}) error {
	if src == nil {
		return nil
	}
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
