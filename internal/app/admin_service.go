package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ebcoins-quiz-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// NewUser describes an account to create.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// QuestionInput carries the editable fields of a question.
type QuestionInput struct {
	Text       string
	Options    []string
	Correct    string
	Difficulty domain.Difficulty
}

// AdminService covers accounts and the question bank.
type AdminService struct {
	users     UserRepository
	questions QuestionRepository
	locker    Locker
	feed      *LeaderboardFeed
	clock     func() time.Time
	topN      int
}

func NewAdminService(users UserRepository, questions QuestionRepository, locker Locker, feed *LeaderboardFeed, topN int) *AdminService {
	if feed == nil {
		feed = NewLeaderboardFeed()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &AdminService{
		users:     users,
		questions: questions,
		locker:    locker,
		feed:      feed,
		clock:     time.Now,
		topN:      topN,
	}
}

// Login authenticates a user. Students need only their email; admins must
// also present their password.
func (s *AdminService) Login(ctx context.Context, email, password string) (domain.Profile, error) {
	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load users: %w", err)
	}
	idx := findUser(users, email)
	if idx < 0 {
		return domain.Profile{}, domain.ErrUnknownUser
	}
	user := users[idx]
	if user.IsAdmin() && !checkPassword(user.PasswordHash, password) {
		return domain.Profile{}, domain.ErrInvalidCredentials
	}
	return user.Profile(), nil
}

// AdminLogin authenticates an administrator by email and password.
func (s *AdminService) AdminLogin(ctx context.Context, email, password string) (domain.Profile, error) {
	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load users: %w", err)
	}
	idx := findUser(users, email)
	if idx < 0 || !users[idx].IsAdmin() || !checkPassword(users[idx].PasswordHash, password) {
		return domain.Profile{}, domain.ErrInvalidCredentials
	}
	return users[idx].Profile(), nil
}

// CreateUser adds an account on behalf of adminEmail.
func (s *AdminService) CreateUser(ctx context.Context, adminEmail string, in NewUser) (domain.Profile, error) {
	return s.createUser(ctx, adminEmail, in, true)
}

// Bootstrap creates an admin without an acting admin; used by the CLI to
// seed the first account.
func (s *AdminService) Bootstrap(ctx context.Context, name, email, password string) (domain.Profile, error) {
	if strings.TrimSpace(password) == "" {
		return domain.Profile{}, fmt.Errorf("%w: password required", domain.ErrInvalidRequest)
	}
	return s.createUser(ctx, "", NewUser{Name: name, Email: email, Password: password, Role: domain.RoleAdmin}, false)
}

func (s *AdminService) createUser(ctx context.Context, adminEmail string, in NewUser, requireAdmin bool) (domain.Profile, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return domain.Profile{}, fmt.Errorf("%w: email required", domain.ErrInvalidRequest)
	}

	unlock, err := s.locker.Lock(ctx, usersLockKey)
	if err != nil {
		return domain.Profile{}, err
	}
	defer unlock()

	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load users: %w", err)
	}
	if requireAdmin && !isAdmin(users, adminEmail) {
		return domain.Profile{}, domain.ErrForbidden
	}
	if findUser(users, email) >= 0 {
		return domain.Profile{}, domain.ErrEmailTaken
	}

	role := domain.RoleStudent
	if in.Role == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	user := domain.User{
		Email:           email,
		Name:            strings.TrimSpace(in.Name),
		Role:            role,
		AnsweredHistory: []domain.HistoryEntry{},
		ReservedToday:   []domain.HistoryEntry{},
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.Profile{}, err
		}
		user.PasswordHash = string(hash)
	}

	users = append(users, user)
	if err := s.users.SaveUsers(ctx, users); err != nil {
		return domain.Profile{}, fmt.Errorf("save users: %w", err)
	}
	return user.Profile(), nil
}

// ListUsers returns every account without credentials.
func (s *AdminService) ListUsers(ctx context.Context, adminEmail string) ([]domain.Profile, error) {
	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if !isAdmin(users, adminEmail) {
		return nil, domain.ErrForbidden
	}
	profiles := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// Reset zeroes every balance and clears history and reservations.
func (s *AdminService) Reset(ctx context.Context, adminEmail string) error {
	unlock, err := s.locker.Lock(ctx, usersLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if !isAdmin(users, adminEmail) {
		return domain.ErrForbidden
	}
	for i := range users {
		users[i].Ebcoins = 0
		users[i].AnsweredHistory = []domain.HistoryEntry{}
		users[i].ReservedToday = []domain.HistoryEntry{}
	}
	if err := s.users.SaveUsers(ctx, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	s.feed.Publish(BuildLeaderboard(users, "", s.topN, s.clock()))
	return nil
}

// ListQuestions returns the full bank, correct answers included.
func (s *AdminService) ListQuestions(ctx context.Context, adminEmail string) ([]domain.Question, error) {
	if err := s.requireAdmin(ctx, adminEmail); err != nil {
		return nil, err
	}
	questions, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// AddQuestion appends a question with id max+1.
func (s *AdminService) AddQuestion(ctx context.Context, adminEmail string, in QuestionInput) (domain.Question, error) {
	if err := validateQuestion(in); err != nil {
		return domain.Question{}, err
	}
	if err := s.requireAdmin(ctx, adminEmail); err != nil {
		return domain.Question{}, err
	}

	unlock, err := s.locker.Lock(ctx, questionsLockKey)
	if err != nil {
		return domain.Question{}, err
	}
	defer unlock()

	questions, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return domain.Question{}, fmt.Errorf("load questions: %w", err)
	}
	q := domain.Question{
		ID:         NextQuestionID(questions),
		Text:       in.Text,
		Options:    in.Options,
		Correct:    in.Correct,
		Difficulty: in.Difficulty,
	}
	questions = append(questions, q)
	if err := s.questions.SaveQuestions(ctx, questions); err != nil {
		return domain.Question{}, fmt.Errorf("save questions: %w", err)
	}
	return q, nil
}

// UpdateQuestion replaces the fields of question id.
func (s *AdminService) UpdateQuestion(ctx context.Context, adminEmail string, id int, in QuestionInput) (domain.Question, error) {
	if err := validateQuestion(in); err != nil {
		return domain.Question{}, err
	}
	if err := s.requireAdmin(ctx, adminEmail); err != nil {
		return domain.Question{}, err
	}

	unlock, err := s.locker.Lock(ctx, questionsLockKey)
	if err != nil {
		return domain.Question{}, err
	}
	defer unlock()

	questions, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return domain.Question{}, fmt.Errorf("load questions: %w", err)
	}
	for i := range questions {
		if questions[i].ID != id {
			continue
		}
		questions[i] = domain.Question{
			ID:         id,
			Text:       in.Text,
			Options:    in.Options,
			Correct:    in.Correct,
			Difficulty: in.Difficulty,
		}
		if err := s.questions.SaveQuestions(ctx, questions); err != nil {
			return domain.Question{}, fmt.Errorf("save questions: %w", err)
		}
		return questions[i], nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// DeleteQuestion removes question id; an absent id is not an error.
func (s *AdminService) DeleteQuestion(ctx context.Context, adminEmail string, id int) error {
	if err := s.requireAdmin(ctx, adminEmail); err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, questionsLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	questions, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	kept := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(questions) {
		return nil
	}
	if err := s.questions.SaveQuestions(ctx, kept); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return nil
}

// NextQuestionID is one more than the highest id, or 1 for an empty bank.
func NextQuestionID(questions []domain.Question) int {
	maxID := 0
	for _, q := range questions {
		if q.ID > maxID {
			maxID = q.ID
		}
	}
	return maxID + 1
}

func (s *AdminService) requireAdmin(ctx context.Context, adminEmail string) error {
	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if !isAdmin(users, adminEmail) {
		return domain.ErrForbidden
	}
	return nil
}

func validateQuestion(in QuestionInput) error {
	if strings.TrimSpace(in.Text) == "" || strings.TrimSpace(in.Correct) == "" || len(in.Options) == 0 {
		return fmt.Errorf("%w: text, options and correct answer are required", domain.ErrInvalidRequest)
	}
	if in.Difficulty.Points() == 0 {
		return domain.ErrInvalidDifficulty
	}
	return nil
}

func isAdmin(users []domain.User, email string) bool {
	idx := findUser(users, email)
	return idx >= 0 && users[idx].IsAdmin()
}

func checkPassword(hash, password string) bool {
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
