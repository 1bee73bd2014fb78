package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/lessonforge/internal/content"
	"github.com/pavelanni/lessonforge/internal/generator"
	appI18n "github.com/pavelanni/lessonforge/internal/i18n"
	"github.com/pavelanni/lessonforge/internal/model"
	"github.com/pavelanni/lessonforge/internal/store"
)

// fakeRunner scripts pipeline outcomes for handler tests.
type fakeRunner struct {
	lesson  *model.Lesson
	err     error
	tracker *generator.Tracker
}

func (f *fakeRunner) Run(ctx context.Context, req generator.Request) (*model.Lesson, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lesson, nil
}

func (f *fakeRunner) Tracker() *generator.Tracker { return f.tracker }

func testLesson() *model.Lesson {
	return &model.Lesson{
		Title:          "Ocean Currents",
		Level:          model.LevelB1,
		TargetLanguage: "English",
		LessonType:     "discussion",
		SectionOrder:   []string{model.SectionWarmUp, model.SectionReading},
		Sections: map[string]model.SectionContent{
			model.SectionWarmUp:  model.StringListContent{Items: []string{"Have you ever seen the ocean?"}},
			model.SectionReading: model.ReadingContent{Passage: "Ocean currents move warm water around the planet."},
		},
		CreatedAt: time.Now().UTC(),
	}
}

type testServer struct {
	router *chi.Mux
	store  *store.Store
	runner *fakeRunner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	runner := &fakeRunner{lesson: testLesson(), tracker: generator.NewTracker()}
	h := New(s, runner, model.ServeConfig{})

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	h.Routes(r)
	return &testServer{router: r, store: s, runner: runner}
}

// createUser inserts a user directly and returns a session cookie for it.
func (ts *testServer) createUser(t *testing.T, username string, role model.UserRole) *http.Cookie {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	id, err := ts.store.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := ts.store.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

func (ts *testServer) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("swordfish1"), bcrypt.MinCost)
	if _, err := ts.store.CreateUser(model.User{
		Username: "anna", PasswordHash: string(hash), Role: model.UserRoleEditor, Active: true,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/api/login", `{"username":"anna","password":"swordfish1"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value == "" {
		t.Fatalf("expected session cookie, got %v", cookies)
	}

	// Wrong password is rejected.
	rec = ts.do(t, http.MethodPost, "/api/login", `{"username":"anna","password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/logout", "", cookies[0])
	if rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rec.Code)
	}
	sess, err := ts.store.GetAuthSession(cookies[0].Value)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess != nil {
		t.Error("session survived logout")
	}
}

func TestCreateLessonPersists(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.createUser(t, "editor", model.UserRoleEditor)

	body := `{"source_text":"long enough text","level":"B1","lesson_type":"discussion"}`
	rec := ts.do(t, http.MethodPost, "/api/lessons", body, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}

	var lesson model.StoredLesson
	if err := json.Unmarshal(rec.Body.Bytes(), &lesson); err != nil {
		t.Fatalf("decode lesson: %v", err)
	}
	if lesson.ID == 0 || lesson.Title != "Ocean Currents" {
		t.Errorf("unexpected lesson: id=%d title=%q", lesson.ID, lesson.Title)
	}

	stored, err := ts.store.GetLesson(lesson.ID)
	if err != nil || stored == nil {
		t.Fatalf("lesson not persisted: %v", err)
	}
}

func TestCreateLessonRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/lessons", `{"source_text":"x","level":"B1"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCreateLessonRejectedInput(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.createUser(t, "editor", model.UserRoleEditor)
	ts.runner.err = &generator.InputError{Outcome: content.Outcome{
		Score:       20,
		Reason:      "Text is too short",
		Suggestions: []string{"Provide at least 50 words"},
	}}

	rec := ts.do(t, http.MethodPost, "/api/lessons", `{"source_text":"hi","level":"B1"}`, cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp struct {
		Reason      string   `json:"reason"`
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reason != "Text is too short" || len(resp.Suggestions) != 1 {
		t.Errorf("unexpected rejection payload: %+v", resp)
	}
}

func TestCreateLessonBadLevel(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.createUser(t, "editor", model.UserRoleEditor)

	rec := ts.do(t, http.MethodPost, "/api/lessons", `{"source_text":"x","level":"Z9"}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetAndDeleteLesson(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.createUser(t, "editor", model.UserRoleEditor)

	id, err := ts.store.SaveLesson(testLesson(), []model.QualityRecord{
		{SectionName: model.SectionWarmUp, Score: 90, Attempts: 1},
	})
	if err != nil {
		t.Fatalf("SaveLesson: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/lessons/1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var resp struct {
		Lesson  model.StoredLesson    `json:"lesson"`
		Quality []model.QualityRecord `json:"quality"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Lesson.Title != "Ocean Currents" || len(resp.Quality) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}

	rec = ts.do(t, http.MethodGet, "/api/lessons/999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing lesson status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/lessons/1", "", cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	gone, err := ts.store.GetLesson(id)
	if err != nil {
		t.Fatalf("GetLesson after delete: %v", err)
	}
	if gone != nil {
		t.Error("lesson still present after delete")
	}
}

func TestLessonHTMLExport(t *testing.T) {
	ts := newTestServer(t)
	if _, err := ts.store.SaveLesson(testLesson(), nil); err != nil {
		t.Fatalf("SaveLesson: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/lessons/1/html", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Ocean Currents") || !strings.Contains(body, "Warm-Up Questions") {
		t.Errorf("html body incomplete:\n%s", body)
	}

	// Russian headings via the lang query parameter.
	rec = ts.do(t, http.MethodGet, "/api/lessons/1/html?lang=ru", "", nil)
	if !strings.Contains(rec.Body.String(), "Чтение") {
		t.Error("russian heading missing from export")
	}
}

func TestQualitySummary(t *testing.T) {
	ts := newTestServer(t)
	if _, err := ts.store.SaveLesson(testLesson(), []model.QualityRecord{
		{SectionName: model.SectionWarmUp, Score: 80, Attempts: 2, IssueCount: 1},
	}); err != nil {
		t.Fatalf("SaveLesson: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/quality/summary", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Stored store.QualityAggregate `json:"stored"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stored.Sections != 1 || resp.Stored.AverageScore != 80 {
		t.Errorf("unexpected aggregate: %+v", resp.Stored)
	}
}

func TestResumeSessionEndpoints(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.createUser(t, "editor", model.UserRoleEditor)

	payload := `{"completed":["warm_up"],"level":"B1"}`
	rec := ts.do(t, http.MethodPut, "/api/sessions/run-42", payload, cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodGet, "/api/sessions/run-42", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if rec.Body.String() != payload {
		t.Errorf("payload round trip failed: %q", rec.Body.String())
	}

	rec = ts.do(t, http.MethodDelete, "/api/sessions/run-42", "", cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/sessions/run-42", "", cookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestUserAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)
	adminCookie := ts.createUser(t, "admin", model.UserRoleAdmin)
	editorCookie := ts.createUser(t, "plain", model.UserRoleEditor)

	// Editors cannot manage users.
	rec := ts.do(t, http.MethodGet, "/api/users", "", editorCookie)
	if rec.Code != http.StatusForbidden {
		t.Errorf("editor list users status = %d, want 403", rec.Code)
	}

	body := `{"username":"newbie","display_name":"New Editor","password":"longenough","role":"editor"}`
	rec = ts.do(t, http.MethodPost, "/api/users", body, adminCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body %s", rec.Code, rec.Body)
	}
	var created userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Username != "newbie" || !created.Active {
		t.Errorf("unexpected created user: %+v", created)
	}

	// Duplicate username is rejected.
	rec = ts.do(t, http.MethodPost, "/api/users", body, adminCookie)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate user status = %d", rec.Code)
	}

	// Short password is rejected.
	rec = ts.do(t, http.MethodPost, "/api/users", `{"username":"u2","password":"tiny","role":"editor"}`, adminCookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/users/3/toggle", "", adminCookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	toggled, err := ts.store.GetUserByID(created.ID)
	if err != nil || toggled == nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if toggled.Active {
		t.Error("user still active after toggle")
	}

	// Deactivated users cannot authenticate.
	token, err := ts.store.CreateAuthSession(created.ID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	rec = ts.do(t, http.MethodGet, "/api/users", "", &http.Cookie{Name: sessionCookieName, Value: token})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("inactive user status = %d, want 401", rec.Code)
	}

	// Admins cannot deactivate themselves.
	rec = ts.do(t, http.MethodPost, "/api/users/1/toggle", "", adminCookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self toggle status = %d, want 400", rec.Code)
	}
}
