package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"microcourse_backend/internal/config"

	"github.com/gin-gonic/gin"
)

const generatedCourse = `{
  "title": "Cash Handling",
  "estimatedMinutes": 8,
  "modules": [
    {
      "title": "Opening the till",
      "contentHtml": "<p>Count the float</p>",
      "learningObjectives": ["Count the float"],
      "questions": [{"stemHtml": "<p>Float?</p>", "options": ["Count it", "Skip it"], "correctIndex": 0, "rationaleHtml": "<p>Always count</p>"}]
    },
    {
      "title": "Closing the till",
      "contentHtml": "<p>Reconcile</p>",
      "learningObjectives": ["Reconcile the drawer"],
      "questions": [{"stemHtml": "<p>Close?</p>", "options": ["Leave", "Reconcile"], "correctIndex": 1, "rationaleHtml": "<p>Reconcile first</p>"}]
    }
  ]
}`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testClient struct {
	t      *testing.T
	router http.Handler
}

func (c *testClient) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			c.t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func (c *testClient) mustDo(method, path, token string, body interface{}, wantStatus int, out interface{}) {
	c.t.Helper()
	status, env := c.do(method, path, token, body)
	if status != wantStatus {
		c.t.Fatalf("%s %s: status want=%d got=%d (%s)", method, path, wantStatus, status, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func newTestApp(t *testing.T) *testClient {
	t.Helper()
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": generatedCourse}},
			},
		})
	}))
	t.Cleanup(ai.Close)

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: "0", Mode: gin.TestMode},
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "integration-secret-integration-secret", ExpireTime: time.Hour},
		Storage:  config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		AI:       config.AIConfig{BaseURL: ai.URL, Model: "gpt-test", TimeoutSeconds: 5},
		Course:   config.CourseConfig{DefaultPassScore: 80},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}

	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testClient{t: t, router: application.Router}
}

func login(c *testClient, email string) string {
	c.t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	c.mustDo(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email}, http.StatusOK, &res)
	return res.Token
}

type courseDTO struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Modules []struct {
		ID    string `json:"id"`
		Index int    `json:"index"`
	} `json:"modules"`
}

func TestCourseLifecycleOverHTTP(t *testing.T) {
	c := newTestApp(t)
	owner := login(c, "owner@acme.test")

	var course courseDTO
	c.mustDo(http.MethodPost, "/api/courses/generate", owner, map[string]interface{}{
		"content": strings.Repeat("Count the float at opening and reconcile at close. ", 3),
	}, http.StatusCreated, &course)
	if course.Title != "Cash Handling" || len(course.Modules) != 2 {
		t.Fatalf("unexpected course: %+v", course)
	}
	m0, m1 := course.Modules[0].ID, course.Modules[1].ID

	var list []courseDTO
	c.mustDo(http.MethodGet, "/api/courses", owner, nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != course.ID {
		t.Fatalf("course list: %+v", list)
	}

	c.mustDo(http.MethodPost, "/api/enrollments", owner, map[string]string{"courseId": course.ID}, http.StatusCreated, nil)
	c.mustDo(http.MethodPost, "/api/enrollments", owner, map[string]string{"courseId": course.ID}, http.StatusOK, nil)

	c.mustDo(http.MethodGet, "/api/modules/"+m1, owner, nil, http.StatusForbidden, nil)

	passModule := func(moduleID string, option int) {
		t.Helper()
		c.mustDo(http.MethodGet, "/api/modules/"+moduleID, owner, nil, http.StatusOK, nil)
		c.mustDo(http.MethodPost, "/api/modules/"+moduleID+"/quiz/start", owner, nil, http.StatusOK, nil)
		c.mustDo(http.MethodPost, "/api/modules/"+moduleID+"/quiz/select", owner, map[string]int{"option": option}, http.StatusOK, nil)
		c.mustDo(http.MethodPost, "/api/modules/"+moduleID+"/quiz/submit", owner, nil, http.StatusOK, nil)
		c.mustDo(http.MethodPost, "/api/modules/"+moduleID+"/quiz/next", owner, nil, http.StatusOK, nil)

		var done struct {
			Passed       bool `json:"passed"`
			ScorePercent int  `json:"scorePercent"`
		}
		c.mustDo(http.MethodPost, "/api/modules/"+moduleID+"/quiz/complete", owner, nil, http.StatusOK, &done)
		if !done.Passed || done.ScorePercent != 100 {
			t.Fatalf("module %s: %+v", moduleID, done)
		}
	}

	passModule(m0, 0)

	var progress struct {
		Modules []struct {
			Unlocked  bool `json:"unlocked"`
			Completed bool `json:"completed"`
		} `json:"modules"`
	}
	c.mustDo(http.MethodGet, "/api/courses/"+course.ID+"/progress", owner, nil, http.StatusOK, &progress)
	if !progress.Modules[0].Completed || !progress.Modules[1].Unlocked || progress.Modules[1].Completed {
		t.Fatalf("progress after first module: %+v", progress)
	}

	passModule(m1, 1)

	var badges []struct {
		Name string `json:"name"`
	}
	c.mustDo(http.MethodGet, "/api/badges/my", owner, nil, http.StatusOK, &badges)
	if len(badges) != 1 || badges[0].Name != "Cash Handling Completion" {
		t.Fatalf("badges: %+v", badges)
	}

	var attempts []struct {
		IsCorrect bool `json:"isCorrect"`
	}
	c.mustDo(http.MethodGet, "/api/attempts/"+course.ID, owner, nil, http.StatusOK, &attempts)
	if len(attempts) != 2 {
		t.Fatalf("attempts: want=2 got=%d", len(attempts))
	}

	var overview struct {
		TotalCourses       int `json:"totalCourses"`
		CompletionRate     int `json:"completionRate"`
		CertificatesIssued int `json:"certificatesIssued"`
	}
	c.mustDo(http.MethodGet, "/api/analytics/overview", owner, nil, http.StatusOK, &overview)
	if overview.TotalCourses != 1 || overview.CompletionRate != 100 || overview.CertificatesIssued != 1 {
		t.Fatalf("overview: %+v", overview)
	}
}

func TestQuizTransitionErrorsOverHTTP(t *testing.T) {
	c := newTestApp(t)
	owner := login(c, "owner@acme.test")

	var course courseDTO
	c.mustDo(http.MethodPost, "/api/courses/generate", owner, map[string]interface{}{
		"content": strings.Repeat("Count the float at opening and reconcile at close. ", 3),
	}, http.StatusCreated, &course)
	m0 := course.Modules[0].ID

	c.mustDo(http.MethodGet, "/api/modules/"+m0+"/quiz", owner, nil, http.StatusNotFound, nil)
	c.mustDo(http.MethodGet, "/api/modules/"+m0, owner, nil, http.StatusOK, nil)
	c.mustDo(http.MethodPost, "/api/modules/"+m0+"/quiz/submit", owner, nil, http.StatusConflict, nil)
	c.mustDo(http.MethodPost, "/api/modules/"+m0+"/quiz/start", owner, nil, http.StatusOK, nil)
	c.mustDo(http.MethodPost, "/api/modules/"+m0+"/quiz/select", owner, map[string]int{"option": 5}, http.StatusBadRequest, nil)
	c.mustDo(http.MethodPost, "/api/modules/"+m0+"/quiz/select", owner, map[string]string{}, http.StatusBadRequest, nil)

	var view struct {
		Phase    string `json:"phase"`
		Question struct {
			CorrectIndex *int `json:"correctIndex"`
		} `json:"question"`
	}
	c.mustDo(http.MethodGet, "/api/modules/"+m0+"/quiz", owner, nil, http.StatusOK, &view)
	if view.Phase != "quiz" || view.Question.CorrectIndex != nil {
		t.Fatalf("quiz view leaked the answer: %+v", view)
	}
}

func TestAuthBoundaries(t *testing.T) {
	c := newTestApp(t)
	owner := login(c, "owner@acme.test")
	stranger := login(c, "someone@other.test")

	c.mustDo(http.MethodGet, "/api/health", "", nil, http.StatusOK, nil)
	c.mustDo(http.MethodGet, "/api/courses", "", nil, http.StatusUnauthorized, nil)
	c.mustDo(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nope"}, http.StatusBadRequest, nil)

	var course courseDTO
	c.mustDo(http.MethodPost, "/api/courses/generate", owner, map[string]interface{}{
		"content": "too short",
	}, http.StatusBadRequest, nil)
	c.mustDo(http.MethodPost, "/api/courses/generate", owner, map[string]interface{}{
		"content":   strings.Repeat("Count the float at opening and reconcile at close. ", 3),
		"passScore": 0,
	}, http.StatusBadRequest, nil)
	c.mustDo(http.MethodPost, "/api/courses/generate", owner, map[string]interface{}{
		"content": strings.Repeat("Count the float at opening and reconcile at close. ", 3),
	}, http.StatusCreated, &course)

	c.mustDo(http.MethodGet, "/api/courses/"+course.ID, stranger, nil, http.StatusForbidden, nil)
	c.mustDo(http.MethodDelete, "/api/courses/"+course.ID, stranger, nil, http.StatusForbidden, nil)
	c.mustDo(http.MethodGet, "/api/courses/missing", owner, nil, http.StatusNotFound, nil)

	var me struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	c.mustDo(http.MethodGet, "/api/auth/me", owner, nil, http.StatusOK, &me)
	if me.User.Email != "owner@acme.test" {
		t.Fatalf("me: %+v", me)
	}

	c.mustDo(http.MethodPost, "/api/auth/logout", owner, nil, http.StatusOK, nil)
	c.mustDo(http.MethodGet, "/api/auth/me", owner, nil, http.StatusUnauthorized, nil)
	c.mustDo(http.MethodPost, "/api/auth/logout", "garbage", nil, http.StatusOK, nil)

	c.mustDo(http.MethodDelete, "/api/courses/"+course.ID, stranger, nil, http.StatusForbidden, nil)
}
