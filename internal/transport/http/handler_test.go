package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ebcoins-quiz-service/internal/app"
	"ebcoins-quiz-service/internal/domain"
	"ebcoins-quiz-service/internal/infra/memory"
)

const adminEmail = "root@school.test"

func TestDailyQuestionsAndAnswers(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp := doJSON(t, http.MethodGet, server.URL+"/questions/ana@school.test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var raw map[string]any
	decodeBody(t, resp, &raw)
	questions, _ := raw["questions"].([]any)
	if raw["success"] != true || len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %+v", raw)
	}
	for _, q := range questions {
		if _, leaked := q.(map[string]any)["correct"]; leaked {
			t.Fatalf("correct answer leaked: %+v", q)
		}
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/answers", map[string]any{
		"email":   "ana@school.test",
		"answers": []map[string]any{{"id": 1, "answer": " Paris "}, {"id": 2, "answer": "wrong"}},
	})
	var score scoreResponse
	decodeBody(t, resp, &score)
	if !score.Success || score.PointsEarned != 1 || score.NewBalance != 1 {
		t.Fatalf("unexpected score %+v", score)
	}
}

func TestErrorResponses(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown user questions", http.MethodGet, "/questions/ghost@school.test", nil, http.StatusNotFound},
		{"missing answers", http.MethodPost, "/answers", map[string]any{"email": "ana@school.test"}, http.StatusBadRequest},
		{"student lists users", http.MethodGet, "/admin/users?adminEmail=ana@school.test", nil, http.StatusForbidden},
		{"bad admin password", http.MethodPost, "/admin/login", map[string]any{"email": adminEmail, "password": "nope"}, http.StatusUnauthorized},
		{"bad difficulty", http.MethodPost, "/admin/questions", map[string]any{"adminEmail": adminEmail, "text": "x", "options": []string{"a"}, "correct": "a", "difficulty": "extreme"}, http.StatusBadRequest},
		{"update unknown question", http.MethodPut, "/admin/questions/99", map[string]any{"adminEmail": adminEmail, "text": "x", "options": []string{"a"}, "correct": "a", "difficulty": "easy"}, http.StatusNotFound},
		{"bad question id", http.MethodDelete, "/admin/questions/abc?adminEmail=" + adminEmail, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp := doJSON(t, tc.method, server.URL+tc.path, tc.body)
		var body messageResponse
		decodeBody(t, resp, &body)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, resp.StatusCode)
		}
		if body.Success || body.Message == "" {
			t.Fatalf("%s: expected failure message, got %+v", tc.name, body)
		}
	}
}

func TestExhaustedPoolIsReportedAsFailure(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	doJSON(t, http.MethodPost, server.URL+"/answers", map[string]any{
		"email":   "ana@school.test",
		"answers": []map[string]any{{"id": 1, "answer": "paris"}, {"id": 2, "answer": "4"}},
	}).Body.Close()

	resp := doJSON(t, http.MethodGet, server.URL+"/questions/ana@school.test", nil)
	var body messageResponse
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body.Success || body.Message != domain.ErrNoQuestionsAvailable.Error() {
		t.Fatalf("expected no-questions outcome, got %d %+v", resp.StatusCode, body)
	}
}

func TestAdminFlow(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp := doJSON(t, http.MethodPost, server.URL+"/admin/users", map[string]any{
		"adminEmail": adminEmail, "name": "Bia", "email": "bia@school.test",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create user: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/admin/questions", map[string]any{
		"adminEmail": adminEmail, "text": "Pick b", "options": []string{"a", "b"}, "correct": "b", "difficulty": "media",
	})
	var added questionResponse
	decodeBody(t, resp, &added)
	if added.Question.ID != 3 || added.Question.Difficulty != domain.Medium {
		t.Fatalf("unexpected question %+v", added.Question)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/admin/users?adminEmail="+adminEmail, nil)
	var users []map[string]any
	decodeBody(t, resp, &users)
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for _, u := range users {
		if _, leaked := u["passwordHash"]; leaked {
			t.Fatalf("password hash leaked: %+v", u)
		}
	}

	resp = doJSON(t, http.MethodPost, server.URL+"/login", map[string]any{"email": "bia@school.test"})
	var login loginResponse
	decodeBody(t, resp, &login)
	if !login.Success || login.Name != "Bia" || login.Role != domain.RoleStudent {
		t.Fatalf("unexpected login %+v", login)
	}

	resp = doJSON(t, http.MethodDelete, server.URL+"/admin/questions/3?adminEmail="+adminEmail, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete question: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/admin/reset", map[string]any{"adminEmail": adminEmail})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLeaderboardEndpoint(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	doJSON(t, http.MethodPost, server.URL+"/answers", map[string]any{
		"email":   "ana@school.test",
		"answers": []map[string]any{{"id": 2, "answer": "4"}},
	}).Body.Close()

	resp := doJSON(t, http.MethodGet, server.URL+"/leaderboard?email=ana@school.test", nil)
	var lb domain.Leaderboard
	decodeBody(t, resp, &lb)
	if len(lb.Top) != 2 || lb.Top[0].Email != "ana@school.test" || lb.Top[0].Ebcoins != 5 {
		t.Fatalf("unexpected leaderboard %+v", lb.Top)
	}
	if lb.Me == nil || lb.Me.Position != 1 {
		t.Fatalf("expected ana first, got %+v", lb.Me)
	}
}

func TestRequestLoggerSetsID(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot || rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected status passthrough and request id, got %d %q", rec.Code, rec.Header().Get("X-Request-ID"))
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	quiz, admin := newTestServices(t)
	mux := http.NewServeMux()
	NewHandler(quiz, admin).Register(mux)
	mux.HandleFunc("/ws/leaderboard", NewWSHandler(quiz).ServeWS)
	return httptest.NewServer(RequestLogger(mux))
}

func newTestServices(t *testing.T) (*app.QuizService, *app.AdminService) {
	t.Helper()
	store := memory.NewStore(
		[]domain.User{{Email: "ana@school.test", Name: "Ana", Role: domain.RoleStudent}},
		[]domain.Question{
			{ID: 1, Text: "Capital of France?", Options: []string{"Paris", "Rome"}, Correct: "paris", Difficulty: domain.Easy},
			{ID: 2, Text: "2 + 2?", Options: []string{"3", "4"}, Correct: "4", Difficulty: domain.Hard},
		},
	)
	locker := memory.NewLocker()
	feed := app.NewLeaderboardFeed()
	quiz := app.NewQuizService(store, store, locker, feed, app.Options{
		Clock:  func() time.Time { return time.Date(2025, 10, 19, 9, 0, 0, 0, time.UTC) },
		Random: rand.New(rand.NewSource(7)),
	})
	admin := app.NewAdminService(store, store, locker, feed, 5)
	if _, err := admin.Bootstrap(context.Background(), "Root", adminEmail, "s3cret"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return quiz, admin
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
