package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"ebcoins-quiz-service/internal/app"
	"ebcoins-quiz-service/internal/domain"
)

// Handler exposes the quiz and admin use cases as JSON endpoints.
type Handler struct {
	quiz  *app.QuizService
	admin *app.AdminService
}

func NewHandler(quiz *app.QuizService, admin *app.AdminService) *Handler {
	return &Handler{quiz: quiz, admin: admin}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /admin/login", h.adminLogin)
	mux.HandleFunc("POST /admin/users", h.createUser)
	mux.HandleFunc("GET /admin/users", h.listUsers)
	mux.HandleFunc("GET /admin/questions", h.listQuestions)
	mux.HandleFunc("POST /admin/questions", h.addQuestion)
	mux.HandleFunc("PUT /admin/questions/{id}", h.updateQuestion)
	mux.HandleFunc("DELETE /admin/questions/{id}", h.deleteQuestion)
	mux.HandleFunc("POST /admin/reset", h.reset)
	mux.HandleFunc("GET /questions/{email}", h.dailyQuestions)
	mux.HandleFunc("POST /answers", h.submitAnswers)
	mux.HandleFunc("GET /leaderboard", h.leaderboard)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool        `json:"success"`
	Name    string      `json:"name"`
	Role    domain.Role `json:"role"`
	Email   string      `json:"email"`
	Ebcoins int         `json:"ebcoins"`
}

type createUserRequest struct {
	AdminEmail string      `json:"adminEmail"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Role       domain.Role `json:"role"`
}

type questionRequest struct {
	AdminEmail string   `json:"adminEmail"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Correct    string   `json:"correct"`
	Difficulty string   `json:"difficulty"`
}

type adminRequest struct {
	AdminEmail string `json:"adminEmail"`
}

type answersRequest struct {
	Email   string                    `json:"email"`
	Answers []domain.AnswerSubmission `json:"answers"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type questionResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Question domain.Question `json:"question"`
}

type dailyResponse struct {
	Success   bool                    `json:"success"`
	Questions []domain.PublicQuestion `json:"questions"`
}

type scoreResponse struct {
	Success      bool `json:"success"`
	PointsEarned int  `json:"pointsEarned"`
	NewBalance   int  `json:"newBalance"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	profile, err := h.admin.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Name: profile.Name, Role: profile.Role, Email: profile.Email, Ebcoins: profile.Ebcoins})
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	profile, err := h.admin.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Name: profile.Name, Role: profile.Role, Email: profile.Email, Ebcoins: profile.Ebcoins})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	_, err := h.admin.CreateUser(r.Context(), req.AdminEmail, app.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "user created"})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context(), r.URL.Query().Get("adminEmail"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.admin.ListQuestions(r.Context(), r.URL.Query().Get("adminEmail"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := h.admin.AddQuestion(r.Context(), req.AdminEmail, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Success: true, Message: "question added", Question: q})
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req questionRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := h.admin.UpdateQuestion(r.Context(), req.AdminEmail, id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Success: true, Message: "question updated", Question: q})
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteQuestion(r.Context(), r.URL.Query().Get("adminEmail"), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "question removed"})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.admin.Reset(r.Context(), req.AdminEmail); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "progress reset"})
}

func (h *Handler) dailyQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.quiz.DailyQuestions(r.Context(), r.PathValue("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyResponse{Success: true, Questions: questions})
}

func (h *Handler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.quiz.SubmitAnswers(r.Context(), req.Email, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Success: true, PointsEarned: result.PointsEarned, NewBalance: result.NewBalance})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.quiz.Leaderboard(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (req questionRequest) input() (app.QuestionInput, error) {
	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		return app.QuestionInput{}, err
	}
	return app.QuestionInput{
		Text:       req.Text,
		Options:    req.Options,
		Correct:    req.Correct,
		Difficulty: difficulty,
	}, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid question id"})
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: domain.ErrInvalidRequest.Error()})
		return false
	}
	return true
}

// writeError maps domain errors to statuses. Quota and empty-pool outcomes
// are expected and answered with 200; unknown errors are storage failures.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded), errors.Is(err, domain.ErrNoQuestionsAvailable):
		status = http.StatusOK
	case errors.Is(err, domain.ErrUnknownUser), errors.Is(err, domain.ErrQuestionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrInvalidDifficulty):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
