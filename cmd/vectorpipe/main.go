package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/ai"
	"github.com/tidegate/vectorpipe/internal/blobstore"
	"github.com/tidegate/vectorpipe/internal/broker"
	"github.com/tidegate/vectorpipe/internal/chunker"
	"github.com/tidegate/vectorpipe/internal/config"
	"github.com/tidegate/vectorpipe/internal/db"
	"github.com/tidegate/vectorpipe/internal/handler"
	"github.com/tidegate/vectorpipe/internal/ingest"
	"github.com/tidegate/vectorpipe/internal/job"
	"github.com/tidegate/vectorpipe/internal/loader"
	"github.com/tidegate/vectorpipe/internal/middleware"
	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/schedule"
	"github.com/tidegate/vectorpipe/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "vectorpipe",
		Short: "document ingestion and chunking pipeline",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the pipeline server",
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

// namespaceProvisioner ties the first upload into a namespace to the one-time
// setup it needs: the ingest topic/subscription and the vector schema.
type namespaceProvisioner struct {
	topology *broker.Topology
	schema   *db.Schema
}

func (p *namespaceProvisioner) EnsureNamespace(ctx context.Context, namespace string) error {
	created, err := p.topology.EnsureIngest(ctx, namespace)
	if err != nil {
		return err
	}
	if created {
		return p.schema.EnsureNamespace(ctx, namespace)
	}
	return nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("broker", cfg.Broker.Type),
		zap.String("blob_store", cfg.BlobStore.Type),
	)

	database, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	executor := db.NewExecutor(database)
	schema := db.NewSchema(executor, cfg.Database.VectorSize)

	b, err := broker.New(cfg.Broker)
	if err != nil {
		return fmt.Errorf("init broker: %w", err)
	}
	topology := broker.NewTopology(b)

	store, err := blobstore.New(cfg.BlobStore)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	gateway := blobstore.NewGateway(store, &namespaceProvisioner{topology: topology, schema: schema})

	var (
		embedder   ai.IEmbedder
		summarizer *ai.Summarizer
	)
	if cfg.AI.Provider != "" {
		provider, err := ai.NewProvider(cfg.AI)
		if err != nil {
			return fmt.Errorf("init ai provider: %w", err)
		}
		if cfg.AI.EmbedModel != "" {
			embedder = ai.NewEmbedder(provider, cfg.AI.EmbedModel)
		}
		summarizer = ai.NewSummarizer(ai.NewGenerator(provider, cfg.AI.Model))
	}

	vstore, err := vectorstore.New("pgvector", vectorstore.Options{
		Executor:   executor,
		Embedder:   embedder,
		VectorSize: cfg.Database.VectorSize,
	})
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	dispatcher := ingest.NewDispatcher(ingest.DispatcherOptions{
		Gateway:    gateway,
		Topology:   topology,
		Loaders:    loader.NewSet(cfg.Loader),
		Engine:     chunker.NewEngine(cfg.Chunk),
		Store:      vstore,
		Summarizer: summarizer,
		Summarize:  cfg.Summary.Enabled,
		TempDir:    cfg.TempDir,
	})
	consumer := ingest.NewConsumer(vstore)

	// the in-process broker has no push transport; deliver straight into the
	// pipeline stages
	if mem, ok := b.(*broker.MemoryBroker); ok {
		mem.SetDelivery(func(ctx context.Context, endpoint string, msg broker.Message) error {
			req := model.PushRequest{Message: model.PushMessage{
				Data:        msg.Data,
				Attributes:  msg.Attributes,
				MessageID:   msg.ID,
				PublishTime: msg.PublishTime.Format(time.RFC3339Nano),
			}}
			switch {
			case strings.HasPrefix(endpoint, "/pubsub_to_store/"):
				_, err := dispatcher.Handle(ctx, strings.TrimPrefix(endpoint, "/pubsub_to_store/"), req)
				return err
			case strings.HasPrefix(endpoint, "/pubsub_chunk_to_store/"):
				consumer.Handle(ctx, strings.TrimPrefix(endpoint, "/pubsub_chunk_to_store/"), req)
			}
			return nil
		})
	}

	deps := handler.RouterDeps{
		Ingest: handler.NewIngestHandler(dispatcher),
		Chunk:  handler.NewChunkHandler(consumer),
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.PushAuth([]byte(cfg.PushSecret)),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewTempCleanupJob(cfg.TempDir, 2*time.Hour), "0 * * * *"); err != nil {
		return err
	}
	if len(cfg.ReportNamespaces) > 0 {
		if err := scheduler.AddJob(job.NewSourcesReportJob(vstore, topology, cfg.ReportNamespaces), "0 6 * * *"); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
