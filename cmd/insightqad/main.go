package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/insightqa/insightqa/internal/api/handlers"
	"github.com/insightqa/insightqa/internal/chunker"
	"github.com/insightqa/insightqa/internal/config"
	"github.com/insightqa/insightqa/internal/database"
	"github.com/insightqa/insightqa/internal/extract"
	"github.com/insightqa/insightqa/internal/llm"
	"github.com/insightqa/insightqa/internal/repository"
	"github.com/insightqa/insightqa/internal/server"
	"github.com/insightqa/insightqa/internal/service"
	"github.com/insightqa/insightqa/internal/storage"
	"github.com/insightqa/insightqa/internal/telemetry"
	"github.com/insightqa/insightqa/internal/vectorstore"
)

const migrationsSource = "file://migrations"

func main() {
	rootCmd := &cobra.Command{
		Use:   "insightqad",
		Short: "InsightQA daemon",
		Long:  "InsightQA daemon for ingesting documents and generating grounded test cases and UI scripts",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := database.Migrate(cfg.DatabaseURL, migrationsSource); err != nil {
				return err
			}
			log.Println("migrations applied")
			return nil
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := database.Migrate(cfg.DatabaseURL, migrationsSource); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("INSIGHTQA_OPENAI_API_KEY is required")
	}
	llmClient, err := llm.NewClientWithConfig(llm.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		ChatModel:      cfg.ChatModel,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	tcRepo := repository.NewTestCaseRepository(pool)
	scriptRepo := repository.NewScriptRepository(pool)
	vectors := vectorstore.NewPgvectorStore(pool)

	kbOpts := []service.KnowledgeBaseServiceOption{
		service.WithChunkConfig(chunker.Config{MaxLen: cfg.ChunkMaxLen, Overlap: cfg.ChunkOverlap}),
	}
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		kbOpts = append(kbOpts, service.WithArchiver(s3Client))
	}

	kbSvc := service.NewKnowledgeBaseService(kbRepo, docRepo, chunkRepo, vectors, extract.NewService(), llmClient, kbOpts...)
	retrievalSvc := service.NewRetrievalService(kbRepo, chunkRepo, vectors, llmClient)
	tcSvc := service.NewTestCaseService(retrievalSvc, tcRepo, chunkRepo, llmClient)
	scriptSvc := service.NewScriptService(tcRepo, docRepo, scriptRepo, llmClient)

	router := server.NewRouter(server.RouterConfig{
		KnowledgeBaseHandler: handlers.NewKnowledgeBaseHandler(kbSvc),
		DocumentHandler:      handlers.NewDocumentHandler(kbSvc),
		TestCaseHandler:      handlers.NewTestCaseHandler(tcSvc, retrievalSvc),
		ScriptHandler:        handlers.NewScriptHandler(scriptSvc),
		MaxBodyBytes:         cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
