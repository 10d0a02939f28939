// Command quizseed loads the demo question bank into the configured database.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/quizd/internal/config"
	"github.com/mind-engage/quizd/internal/db"
	"github.com/mind-engage/quizd/internal/logger"
	"github.com/mind-engage/quizd/internal/quiz"
	syncx "github.com/mind-engage/quizd/internal/sync"
)

func main() {
	cfgDir := flag.String("config", ".", "directory holding an optional config.yaml")
	category := flag.String("category", "General", "category for the seeded questions")
	flag.Parse()

	cfg, err := config.Load(*cfgDir)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logr, err := logger.New(logger.Options{Level: cfg.LogLevel, Dev: true})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logr.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	driver := db.Driver(cfg.DBDriver)
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		logr.Fatal("db open failed", zap.Error(err))
	}
	defer dbh.Close()

	store := quiz.NewSQLStore(dbh, driver, syncx.NewEventRepo(dbh, driver, cfg.SiteID))
	svc := quiz.NewService(store, nil, quiz.WithLogger(logr))

	n, err := seed(ctx, svc, *category)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
	logr.Info("seeded questions", zap.Int("count", n), zap.String("category", *category))
}

// seed adds the sample bank under category, creating the category when it
// does not exist yet.
func seed(ctx context.Context, svc *quiz.Service, category string) (int, error) {
	cat, err := svc.CreateCategory(ctx, category)
	if errors.Is(err, quiz.ErrCategoryExists) {
		cats, lerr := svc.ListCategories(ctx)
		if lerr != nil {
			return 0, lerr
		}
		for _, c := range cats {
			if strings.EqualFold(c.Name, strings.TrimSpace(category)) {
				cat, err = c, nil
				break
			}
		}
	}
	if err != nil {
		return 0, err
	}

	for i, in := range sampleQuestions {
		in.Category = &cat.ID
		if _, err := svc.CreateQuestion(ctx, in); err != nil {
			return i, err
		}
	}
	return len(sampleQuestions), nil
}
