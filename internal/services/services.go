package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/cinematch/internal/cache"
	"github.com/temcen/cinematch/internal/catalog"
	"github.com/temcen/cinematch/internal/config"
	"github.com/temcen/cinematch/internal/database"
	"github.com/temcen/cinematch/internal/dataset"
	"github.com/temcen/cinematch/internal/matrix"
	"github.com/temcen/cinematch/internal/messaging"
	"github.com/temcen/cinematch/internal/metrics"
	"github.com/temcen/cinematch/internal/recommender"
)

// Services owns the loaded dataset and everything derived from it. All of it
// is read-only once New returns.
type Services struct {
	Dataset        *dataset.Dataset
	Matrix         *matrix.Interaction
	Recommendation *recommender.Service
	Catalog        *catalog.Engine
	Publisher      *messaging.Publisher
	DB             *database.Database
}

func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, db *database.Database, m *metrics.Metrics) (*Services, error) {
	start := time.Now()

	ratings, movies, err := sources(cfg, db)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.Load(ctx, ratings, movies, dataset.Options{
		MaxUsers: cfg.Data.MaxUsers,
		MaxItems: cfg.Data.MaxItems,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	im, err := matrix.Build(ds.Ratings)
	if err != nil {
		return nil, fmt.Errorf("failed to build interaction matrix: %w", err)
	}
	users, items := im.Shape()
	m.SetDatasetSize("users", users)
	m.SetDatasetSize("items", items)
	m.SetDatasetSize("ratings", im.NNZ())
	m.SetDatasetSize("movies", len(ds.Movies))
	logger.WithFields(logrus.Fields{
		"users":   users,
		"items":   items,
		"ratings": im.NNZ(),
		"movies":  len(ds.Movies),
	}).Info("Interaction matrix built")

	lc := cfg.Recommendation.Latent
	scorer, err := recommender.NewScorer(cfg.Recommendation.Strategy, im, recommender.LatentConfig{
		Rank:            lc.Rank,
		Oversampling:    lc.Oversampling,
		PowerIterations: lc.PowerIterations,
		Seed:            lc.Seed,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}

	svc := &Services{Dataset: ds, Matrix: im, DB: db}

	recOpts := []recommender.Option{
		recommender.WithMetrics(m),
		recommender.WithDefaults(cfg.Recommendation.TopN, cfg.Recommendation.MinRated),
	}
	if cfg.Kafka.Enabled {
		svc.Publisher = messaging.NewPublisher(cfg, m, logger)
		recOpts = append(recOpts, recommender.WithEventPublisher(svc.Publisher))
	}
	svc.Recommendation = recommender.NewService(im, scorer, ds, logger, recOpts...)

	catOpts := []catalog.Option{catalog.WithMetrics(m)}
	if db != nil && db.Redis != nil {
		rc := cfg.Catalog.RedisCache
		catOpts = append(catOpts, catalog.WithPageStore(cache.NewRedisStore[catalog.Page](db.Redis, rc.KeyPrefix, rc.TTL)))
	}
	svc.Catalog = catalog.NewEngine(ds, catalog.Config{
		CacheSize:  cfg.Catalog.CacheSize,
		SampleSeed: cfg.Catalog.SampleSeed,
	}, logger, catOpts...)

	catalogSize := svc.Catalog.Warm()
	preview := svc.Catalog.Sample(cfg.Catalog.DefaultSampleSize)

	logger.WithFields(logrus.Fields{
		"strategy":     scorer.Name(),
		"catalog_size": catalogSize,
		"preview_size": len(preview),
		"duration":     time.Since(start),
	}).Info("Recommendation engine ready")

	return svc, nil
}

func sources(cfg *config.Config, db *database.Database) (dataset.RatingSource, dataset.MovieSource, error) {
	switch cfg.Data.Source {
	case config.SourcePostgres:
		if db == nil || db.PG == nil {
			return nil, nil, fmt.Errorf("data source %q requires a database connection", cfg.Data.Source)
		}
		return dataset.PostgresRatings{DB: db.PG, Table: cfg.Data.RatingsTable},
			dataset.PostgresMovies{DB: db.PG, Table: cfg.Data.MoviesTable}, nil
	case config.SourceCSV:
		return dataset.CSVRatings{Path: cfg.Data.RatingsPath},
			dataset.CSVMovies{Path: cfg.Data.MoviesPath}, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

// Health reports the state of the optional external stores.
func (s *Services) Health(ctx context.Context) map[string]string {
	if s.DB == nil {
		return map[string]string{}
	}
	return s.DB.Ping(ctx)
}

func (s *Services) Close() error {
	if s.Publisher != nil {
		return s.Publisher.Close()
	}
	return nil
}
