package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"ebcoins-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store keeps users and questions in Postgres. Saves replace the whole
// collection in one transaction; users keep their collection order.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT email, name, role, password_hash, ebcoins, answered_history, reserved_today
		FROM users ORDER BY position, email`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var (
			u             domain.User
			role          string
			history, resv []byte
		)
		if err := rows.Scan(&u.Email, &u.Name, &role, &u.PasswordHash, &u.Ebcoins, &history, &resv); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = domain.Role(role)
		if err := json.Unmarshal(history, &u.AnsweredHistory); err != nil {
			return nil, fmt.Errorf("unmarshal history for %s: %w", u.Email, err)
		}
		if err := json.Unmarshal(resv, &u.ReservedToday); err != nil {
			return nil, fmt.Errorf("unmarshal reservations for %s: %w", u.Email, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func (s *Store) SaveUsers(ctx context.Context, users []domain.User) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		emails := make([]string, 0, len(users))
		for _, u := range users {
			emails = append(emails, u.Email)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE NOT (email = ANY($1))`, emails); err != nil {
			return fmt.Errorf("prune users: %w", err)
		}

		for i, u := range users {
			history, err := marshalEntries(u.AnsweredHistory)
			if err != nil {
				return err
			}
			resv, err := marshalEntries(u.ReservedToday)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `INSERT INTO users (email, position, name, role, password_hash, ebcoins, answered_history, reserved_today)
				VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb)
				ON CONFLICT (email) DO UPDATE SET
					position = EXCLUDED.position,
					name = EXCLUDED.name,
					role = EXCLUDED.role,
					password_hash = EXCLUDED.password_hash,
					ebcoins = EXCLUDED.ebcoins,
					answered_history = EXCLUDED.answered_history,
					reserved_today = EXCLUDED.reserved_today`,
				u.Email, i, u.Name, string(u.Role), u.PasswordHash, u.Ebcoins, history, resv)
			if err != nil {
				return fmt.Errorf("upsert user %s: %w", u.Email, err)
			}
		}
		return nil
	})
}

func (s *Store) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, text, options, correct, difficulty FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var (
			q          domain.Question
			options    []byte
			difficulty string
		)
		if err := rows.Scan(&q.ID, &q.Text, &options, &q.Correct, &difficulty); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %d: %w", q.ID, err)
		}
		if q.Difficulty, err = domain.ParseDifficulty(difficulty); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

func (s *Store) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ids, err := questionIDs(questions)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE NOT (id = ANY($1))`, ids); err != nil {
			return fmt.Errorf("prune questions: %w", err)
		}

		for _, q := range questions {
			options, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options for question %d: %w", q.ID, err)
			}
			_, err = tx.Exec(ctx, `INSERT INTO questions (id, text, options, correct, difficulty)
				VALUES ($1, $2, $3::jsonb, $4, $5)
				ON CONFLICT (id) DO UPDATE SET
					text = EXCLUDED.text,
					options = EXCLUDED.options,
					correct = EXCLUDED.correct,
					difficulty = EXCLUDED.difficulty`,
				q.ID, q.Text, string(options), q.Correct, string(q.Difficulty))
			if err != nil {
				return fmt.Errorf("upsert question %d: %w", q.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func marshalEntries(entries []domain.HistoryEntry) (string, error) {
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}
	return string(raw), nil
}

// questionIDs converts ids for the INTEGER id column, refusing any that
// would not fit.
func questionIDs(questions []domain.Question) ([]int32, error) {
	ids := make([]int32, 0, len(questions))
	for _, q := range questions {
		if q.ID < 1 || q.ID > math.MaxInt32 {
			return nil, fmt.Errorf("question id %d out of range: %w", q.ID, domain.ErrInvalidRequest)
		}
		ids = append(ids, int32(q.ID))
	}
	return ids, nil
}
