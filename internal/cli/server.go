package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opening-lines-quiz/internal/app"
	"opening-lines-quiz/internal/config"
	"opening-lines-quiz/internal/domain"
	"opening-lines-quiz/internal/infra/memory"
	pgstore "opening-lines-quiz/internal/infra/postgres"
	infraredis "opening-lines-quiz/internal/infra/redis"
	"opening-lines-quiz/internal/logger"
	transport "opening-lines-quiz/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// corpusLoader is satisfied by every corpus source the server can boot from.
type corpusLoader interface {
	LoadCorpus(ctx context.Context) (domain.Corpus, error)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	loader, closeLoader, err := newCorpusLoader(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLoader()

	corpusTTL := config.Duration(cfg.Corpus.TTL, time.Hour)
	var corpusRepo app.CorpusRepository
	if redisClient != nil {
		corpusRepo = infraredis.NewCorpusRepository(redisClient, loader, corpusTTL)
	} else {
		corpusRepo = memory.NewCorpusRepository(loader, corpusTTL)
	}

	// Fail fast on a broken corpus rather than on the first player.
	if _, err := corpusRepo.GetCorpus(ctx); err != nil {
		return err
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = infraredis.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	sessionCfg := app.SessionConfig{
		QuestionCount: cfg.Quiz.QuestionCount,
		OptionCount:   cfg.Quiz.OptionCount,
		RevealLimit:   cfg.Quiz.RevealLimit,
		Cadence:       config.Duration(cfg.Quiz.Cadence, app.DefaultCadence),
		AdvanceDelay:  config.Duration(cfg.Quiz.AdvanceDelay, app.DefaultAdvanceDelay),
	}
	service := app.NewQuizService(store, corpusRepo, sessionCfg, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(service, log).ServeWS)
	mux.Handle("/catalog", transport.NewCatalogHandler(service, log))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newCorpusLoader picks Postgres when configured, then corpus files, then
// the bundled corpus.
func newCorpusLoader(ctx context.Context, cfg config.Config, log *zap.Logger) (corpusLoader, func(), error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("corpus source", zap.String("source", "postgres"))
		return pgstore.NewCorpusLoader(pool), pool.Close, nil
	}

	c, err := fileCorpus(cfg)
	if err != nil {
		return nil, nil, err
	}
	source := "bundled"
	if cfg.Corpus.QuestionsPath != "" {
		source = cfg.Corpus.QuestionsPath
	}
	log.Info("corpus source", zap.String("source", source), zap.Int("questions", len(c.Questions)))
	return memory.NewStaticCorpusLoader(c), func() {}, nil
}
