package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opening-lines-quiz/internal/config"
	"opening-lines-quiz/internal/corpus"
	"opening-lines-quiz/internal/domain"
	pgstore "opening-lines-quiz/internal/infra/postgres"
	"opening-lines-quiz/internal/logger"
)

// NewSeedCmd loads the corpus (bundled or from corpus.*_path) into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed Postgres with the question and title corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Env)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := runMigrations(cmd.Context(), cfg, log); err != nil {
				return err
			}
			c, err := fileCorpus(cfg)
			if err != nil {
				return err
			}

			db := openBunDB(cfg.Postgres.URL)
			defer db.Close()
			if err := pgstore.Seed(cmd.Context(), db, c); err != nil {
				return fmt.Errorf("seed corpus: %w", err)
			}
			log.Info("corpus seeded",
				zap.Int("questions", len(c.Questions)),
				zap.Int("title_scores", len(c.Titles)),
			)
			return nil
		},
	}
}

// fileCorpus reads the configured corpus files, or the bundled corpus when
// no paths are set.
func fileCorpus(cfg config.Config) (domain.Corpus, error) {
	if cfg.Corpus.QuestionsPath != "" && cfg.Corpus.TitlesPath != "" {
		return corpus.LoadFiles(cfg.Corpus.QuestionsPath, cfg.Corpus.TitlesPath)
	}
	return corpus.Default()
}
