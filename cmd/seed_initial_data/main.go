package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"lingo-quiz/cmd/seed_initial_data/seedmodels"
	"lingo-quiz/internal/config"
	"lingo-quiz/internal/database"
	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/repository"
	"lingo-quiz/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultSeedFilePath = "config/seed_data/phrases.json"

// seeder pre-loads phrases and their translations so the first searches hit the store.
type seeder struct {
	phrases      domain.PhraseRepository
	translations domain.TranslationRepository
	txManager    domain.TransactionManager
	model        string
	log          *zap.Logger
	now          func() time.Time
}

type seedStats struct {
	PhrasesCreated      int
	PhrasesExisting     int
	TranslationsCreated int
	TranslationsSkipped int
}

func main() {
	var seedFile string
	cmd := &cobra.Command{
		Use:          "seed_initial_data",
		Short:        "Load phrases and translations from a JSON seed file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), seedFile)
		},
	}
	cmd.Flags().StringVarP(&seedFile, "file", "f", defaultSeedFilePath, "path to the phrase seed file")
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Printf("Seeding failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, seedFile string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Get()

	log.Info("Starting initial data seeding process...")
	db, err := database.NewDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info("Loading seed data from file", zap.String("path", seedFile))
	byteValue, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", seedFile, err)
	}
	var languages []seedmodels.SeedLanguage
	if err := json.Unmarshal(byteValue, &languages); err != nil {
		return fmt.Errorf("failed to unmarshal seed data: %w", err)
	}

	s := &seeder{
		phrases:      repository.NewSQLXPhraseRepository(db),
		translations: repository.NewSQLXTranslationRepository(db),
		txManager:    repository.NewTransactionManagerAdapter(db),
		model:        "seed",
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}

	var total seedStats
	for _, lang := range languages {
		stats, err := s.seedLanguage(ctx, lang)
		if err != nil {
			log.Error("Error seeding language, transaction rolled back", zap.String("language", lang.SourceLanguage), zap.Error(err))
			continue
		}
		total.PhrasesCreated += stats.PhrasesCreated
		total.PhrasesExisting += stats.PhrasesExisting
		total.TranslationsCreated += stats.TranslationsCreated
		total.TranslationsSkipped += stats.TranslationsSkipped
	}
	log.Info("Initial data seeding process completed.",
		zap.Int("phrases_created", total.PhrasesCreated),
		zap.Int("phrases_existing", total.PhrasesExisting),
		zap.Int("translations_created", total.TranslationsCreated),
		zap.Int("translations_skipped", total.TranslationsSkipped))
	return nil
}

// seedLanguage stores one language's phrases in a single transaction. Re-running is a no-op.
func (s *seeder) seedLanguage(ctx context.Context, lang seedmodels.SeedLanguage) (seedStats, error) {
	var stats seedStats
	source := strings.ToLower(strings.TrimSpace(lang.SourceLanguage))
	if source == "" {
		return stats, errors.New("source_language is required")
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		stats = seedStats{}
		for _, sp := range lang.Phrases {
			now := s.now()
			candidate := domain.NewPhrase(util.NewULID(), sp.Text, source, now)
			if candidate.Text == "" {
				s.log.Warn("Skipping blank seed phrase", zap.String("language", source))
				continue
			}

			phrase, err := s.phrases.GetByText(txCtx, candidate.NormalizedText, source)
			if err != nil {
				return fmt.Errorf("error checking phrase %q: %w", candidate.Text, err)
			}
			if phrase == nil {
				candidate.SearchCount = 0
				if err := s.phrases.Create(txCtx, candidate); err != nil {
					return fmt.Errorf("failed to save phrase %q: %w", candidate.Text, err)
				}
				phrase = candidate
				stats.PhrasesCreated++
			} else {
				stats.PhrasesExisting++
			}

			for _, st := range sp.Translations {
				created, err := s.seedTranslation(txCtx, phrase, st, now)
				if err != nil {
					return err
				}
				if created {
					stats.TranslationsCreated++
				} else {
					stats.TranslationsSkipped++
				}
			}
		}
		return nil
	})
	return stats, err
}

func (s *seeder) seedTranslation(ctx context.Context, phrase *domain.Phrase, st seedmodels.SeedTranslation, now time.Time) (bool, error) {
	target := strings.ToLower(strings.TrimSpace(st.TargetLanguage))
	if target == "" || len(st.Entries) == 0 {
		return false, nil
	}
	existing, err := s.translations.Get(ctx, phrase.ID, target)
	if err != nil {
		return false, fmt.Errorf("error checking translation %q -> %s: %w", phrase.Text, target, err)
	}
	if existing != nil {
		return false, nil
	}

	entries := make([]domain.TranslationEntry, 0, len(st.Entries))
	for _, e := range st.Entries {
		entries = append(entries, domain.TranslationEntry{Word: e.Word, Tag: e.Tag, Gloss: e.Gloss})
	}
	record := &domain.TranslationRecord{
		ID:             util.NewULID(),
		PhraseID:       phrase.ID,
		TargetLanguage: target,
		Entries:        entries,
		Model:          s.model,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.translations.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save translation %q -> %s: %w", phrase.Text, target, err)
	}
	return true, nil
}
