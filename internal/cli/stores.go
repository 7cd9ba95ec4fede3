package cli

import (
	"context"
	"log"
	"time"

	"ebcoins-quiz-service/internal/app"
	"ebcoins-quiz-service/internal/config"
	"ebcoins-quiz-service/internal/infra/file"
	"ebcoins-quiz-service/internal/infra/memory"
	pgstore "ebcoins-quiz-service/internal/infra/postgres"
	redisinfra "ebcoins-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// stores bundles the collaborators chosen by configuration.
type stores struct {
	users     app.UserRepository
	questions app.QuestionRepository
	locker    app.Locker
	closers   []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores picks Postgres when configured, JSON files otherwise, and
// fronts the question bank with Redis or an in-process cache.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}

	var users app.UserRepository
	var questions app.QuestionRepository
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		pg := pgstore.NewStore(pool)
		users, questions = pg, pg
		log.Printf("using postgres storage")
	} else {
		fs, err := file.NewStore(cfg.DataDir())
		if err != nil {
			return nil, err
		}
		users, questions = fs, fs
		log.Printf("using json storage in %s", cfg.DataDir())
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.questions = redisinfra.NewQuestionCache(client, questions, quizTTL)
		s.locker = redisinfra.NewLocker(client, config.TTLDuration(cfg.Redis.LockTTL, 10*time.Second))
	} else {
		s.questions = memory.NewQuestionCache(questions, quizTTL)
		s.locker = memory.NewLocker()
	}
	s.users = users
	return s, nil
}
