package cli

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"quiz-platform/internal/app"
	"quiz-platform/internal/auth"
	"quiz-platform/internal/config"
	"quiz-platform/internal/feedback"
	"quiz-platform/internal/infra/memory"
	"quiz-platform/internal/infra/postgres"
	redisinfra "quiz-platform/internal/infra/redis"
	"quiz-platform/internal/jobs"
	transport "quiz-platform/internal/transport/http"
)

// repositories groups the storage ports of one backend.
type repositories struct {
	users        app.UserRepository
	categories   app.CategoryRepository
	tags         app.TagRepository
	quizzes      app.QuizRepository
	questions    app.QuestionRepository
	attempts     app.AttemptRepository
	achievements app.AchievementRepository
	leaderboards app.LeaderboardRepository
	scores       app.ScoreSource
	answerKeys   app.AnswerKeyLoader
}

// container holds the wired application. Postgres and Redis are optional: without them
// the process runs on the in-memory store and runs jobs inline.
type container struct {
	cfg config.Config
	log zerolog.Logger

	db    *bun.DB
	pool  *pgxpool.Pool
	redis *redis.Client

	hub          *app.LeaderboardHub
	bus          *redisinfra.SnapshotBus
	users        *app.UserService
	leaderboards *app.LeaderboardService
	processor    *jobs.Processor
	queue        *jobs.Queue
	services     transport.Services

	closers []func()
}

func newContainer(ctx context.Context, cfg config.Config, log zerolog.Logger) (*container, error) {
	c := &container{cfg: cfg, log: log}

	repos, err := c.openStorage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.openRedis()

	var keys app.AnswerKeyStore
	var entries app.EntryCache
	if c.redis != nil {
		keys = redisinfra.NewAnswerKeyCache(c.redis, repos.answerKeys, cfg.Cache.AnswerKeyTTL, log)
		entries = redisinfra.NewLeaderboardCache(c.redis, cfg.Cache.LeaderboardTTL, log)
	} else {
		keys = memory.NewAnswerKeyCache(repos.answerKeys, cfg.Cache.AnswerKeyTTL)
		entries = memory.NewEntryCache()
	}

	c.hub = app.NewLeaderboardHub()
	c.users = app.NewUserService(repos.users, repos.quizzes)
	achievements := app.NewAchievementService(repos.achievements, repos.users, repos.attempts, repos.categories, log)
	c.leaderboards = app.NewLeaderboardService(repos.leaderboards, repos.categories, repos.scores, entries, c.hub, cfg.Leaderboard.Size, log)
	if c.redis != nil {
		c.bus = redisinfra.NewSnapshotBus(c.redis, log)
		c.leaderboards.WithPublisher(c.bus)
	}
	c.processor = jobs.NewProcessor(achievements, c.leaderboards, log)

	var queue app.JobQueue = jobs.NewInlineQueue(c.processor)
	if c.redis != nil {
		c.queue = jobs.NewQueue(c.redisConnOpt(), log)
		c.closers = append(c.closers, func() { _ = c.queue.Close() })
		queue = c.queue
	}

	exchanger := auth.NewExchanger(auth.ExchangerConfig{
		TokenURL:        cfg.Auth.TokenURL,
		ClientID:        cfg.Auth.ClientID,
		ClientSecret:    cfg.Auth.ClientSecret,
		DefaultAudience: cfg.Auth.ExchangeAudience,
	})

	c.services = transport.Services{
		Users:        c.users,
		Categories:   app.NewCategoryService(repos.categories),
		Tags:         app.NewTagService(repos.tags),
		Quizzes:      app.NewQuizService(repos.quizzes, repos.categories, repos.tags, keys),
		Questions:    app.NewQuestionService(repos.questions, repos.quizzes, keys),
		Attempts:     app.NewAttemptService(repos.attempts, repos.quizzes, repos.questions, keys, queue, log),
		Achievements: achievements,
		Leaderboards: c.leaderboards,
		Exchanger:    exchanger,
		Feedback: feedback.NewClient(feedback.Config{
			BaseURL:  cfg.Feedback.BaseURL,
			Timeout:  cfg.Feedback.Timeout,
			Audience: cfg.Feedback.Audience,
		}, exchanger, log),
	}
	return c, nil
}

func (c *container) openStorage(ctx context.Context) (repositories, error) {
	if c.cfg.Postgres.URL == "" {
		c.log.Warn().Msg("postgres url not configured, using the in-memory store")
		store := memory.NewStore()
		return repositories{
			users:        store.Users(),
			categories:   store.Categories(),
			tags:         store.Tags(),
			quizzes:      store.Quizzes(),
			questions:    store.Questions(),
			attempts:     store.Attempts(),
			achievements: store.Achievements(),
			leaderboards: store.Leaderboards(),
			scores:       store.Scores(),
			answerKeys:   store.Questions(),
		}, nil
	}

	db, err := postgres.OpenDB(ctx, c.cfg.Postgres.URL, c.cfg.Postgres.MaxOpenConns, c.log, c.cfg.Logging.SlowQueryThreshold)
	if err != nil {
		return repositories{}, err
	}
	c.db = db
	c.closers = append(c.closers, func() { _ = db.Close() })

	group, err := postgres.Migrate(ctx, db)
	if err != nil {
		return repositories{}, err
	}
	if group.IsZero() {
		c.log.Info().Msg("database schema up to date")
	} else {
		c.log.Info().Str("group", group.String()).Msg("migrations applied")
	}

	pool, err := postgres.OpenPool(ctx, c.cfg.Postgres.URL, c.log)
	if err != nil {
		return repositories{}, err
	}
	c.pool = pool
	c.closers = append(c.closers, pool.Close)

	return repositories{
		users:        postgres.NewUserRepository(db),
		categories:   postgres.NewCategoryRepository(db),
		tags:         postgres.NewTagRepository(db),
		quizzes:      postgres.NewQuizRepository(db),
		questions:    postgres.NewQuestionRepository(db),
		attempts:     postgres.NewAttemptRepository(db),
		achievements: postgres.NewAchievementRepository(db),
		leaderboards: postgres.NewLeaderboardRepository(db),
		scores:       postgres.NewScoreSource(pool),
		answerKeys:   postgres.NewAnswerKeyLoader(pool),
	}, nil
}

func (c *container) openRedis() {
	if c.cfg.Redis.Addr == "" {
		c.log.Warn().Msg("redis addr not configured, using in-process caches and inline jobs")
		return
	}
	c.redis = redis.NewClient(&redis.Options{
		Addr:     c.cfg.Redis.Addr,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	})
	c.closers = append(c.closers, func() { _ = c.redis.Close() })
}

func (c *container) redisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.cfg.Redis.Addr,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	}
}

func (c *container) healthChecks() map[string]transport.HealthCheck {
	checks := map[string]transport.HealthCheck{"database": nil, "redis": nil}
	if c.db != nil {
		checks["database"] = c.db.PingContext
	}
	if c.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases connections in reverse order of opening.
func (c *container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
