package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Nicoleon0812/calendario-carrera/config"
	"github.com/Nicoleon0812/calendario-carrera/internal/api/handler"
	"github.com/Nicoleon0812/calendario-carrera/internal/api/middleware"
	"github.com/Nicoleon0812/calendario-carrera/internal/model"
	"github.com/Nicoleon0812/calendario-carrera/internal/repository"
	"github.com/Nicoleon0812/calendario-carrera/internal/service"
	"github.com/Nicoleon0812/calendario-carrera/pkg/jwt"
	"github.com/Nicoleon0812/calendario-carrera/pkg/ratelimit"
	"github.com/Nicoleon0812/calendario-carrera/pkg/response"
)

// ── 内存仓储 ──

type memCourses struct{ courses []model.Course }

func (m *memCourses) List(_ context.Context) ([]model.Course, error) { return m.courses, nil }
func (m *memCourses) Upsert(_ context.Context, c []model.Course) error {
	m.courses = append(m.courses, c...)
	return nil
}

type memAllowList struct{}

func (memAllowList) GetByEmail(_ context.Context, _ string) (*model.AllowedUser, error) {
	return nil, gorm.ErrRecordNotFound
}
func (memAllowList) Upsert(_ context.Context, _ *model.AllowedUser) error { return nil }

type memPlacements struct {
	mu     sync.Mutex
	rows   []model.Placement
	nextID int64
}

func (m *memPlacements) ListByEmail(_ context.Context, email string) ([]model.Placement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Placement
	for _, r := range m.rows {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memPlacements) Create(_ context.Context, p *model.Placement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.rows = append(m.rows, *p)
	return nil
}

func (m *memPlacements) DeleteByID(_ context.Context, email string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, r := range m.rows {
		if !(r.ID == id && r.Email == email) {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

func (m *memPlacements) DeleteByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.Email != email {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

// ── 测试辅助 ──

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	if err := middleware.RegisterValidators(); err != nil {
		t.Fatalf("注册校验器失败: %v", err)
	}

	cfg := &config.Config{
		Auth:      config.AuthConfig{JWTSecret: "router-test-secret-key", AccessTokenTTL: time.Hour},
		Access:    config.AccessConfig{Mode: config.AccessModeDomainSuffix, Domains: []string{"@ucm.cl"}},
		Planner:   config.PlannerConfig{CreditCeiling: 30, CellCapacity: 2, RemoteTimeout: time.Second},
		Export:    config.ExportConfig{SheetName: "Horario", TermStart: "2026-03-02", TermWeeks: 16, Timezone: "UTC"},
		RateLimit: config.RateLimitConfig{LoginLimit: 100, LoginWindow: time.Minute},
	}
	repo := &repository.Repository{
		Course: &memCourses{courses: []model.Course{
			{ID: "MAT101", Name: "Cálculo I", Credits: 3},
			{ID: "INF101", Name: "Programación", Credits: 10},
		}},
		AllowList: memAllowList{},
		Placement: &memPlacements{},
	}
	logger := zap.NewNop()
	jwtMgr := jwt.NewManager(&cfg.Auth)

	svc, err := service.NewService(cfg, repo, jwtMgr, nil, logger)
	if err != nil {
		t.Fatalf("NewService 失败: %v", err)
	}
	if err := svc.Catalog.Load(context.Background()); err != nil {
		t.Fatalf("加载目录失败: %v", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
	return Setup(cfg, handler.NewHandler(svc), jwtMgr, nil, limiter, logger)
}

func call(h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	var buf *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	w, resp := call(h, "POST", "/api/v1/auth/login", "", map[string]string{"email": email})
	if w.Code != http.StatusOK {
		t.Fatalf("登录失败: %d %s", w.Code, w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	return data["access_token"].(string)
}

// ── 测试 ──

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := setupServer(t)

	w, _ := call(h, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health expected 200, got %d", w.Code)
	}

	w, _ = call(h, "GET", "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "horario_http_requests_total") {
		t.Errorf("metrics 未暴露请求计数: %d", w.Code)
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	h := setupServer(t)

	for _, path := range []string{"/api/v1/schedule", "/api/v1/catalog", "/api/v1/export/xlsx"} {
		w, _ := call(h, "GET", path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s expected 401, got %d", path, w.Code)
		}
	}

	w, _ := call(h, "GET", "/api/v1/grid", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("grid 无需认证，实际 %d", w.Code)
	}
}

func TestRouter_LoginDenied(t *testing.T) {
	h := setupServer(t)

	w, resp := call(h, "POST", "/api/v1/auth/login", "", map[string]string{"email": "ana@gmail.com"})
	if w.Code != http.StatusForbidden || resp.Code != 11002 {
		t.Errorf("expected 403/11002, got %d/%d", w.Code, resp.Code)
	}
}

func TestRouter_PlannerFlow(t *testing.T) {
	h := setupServer(t)
	token := login(t, h, "  Ana@UCM.cl ")

	// 放置
	w, resp := call(h, "POST", "/api/v1/schedule/placements", token,
		map[string]string{"course_id": "INF101", "day": "Lunes", "block": "08:30-09:30"})
	if w.Code != http.StatusCreated {
		t.Fatalf("放置期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	entry := resp.Data.(map[string]interface{})["entry"].(map[string]interface{})
	id := int64(entry["id"].(float64))

	// 同一课程可放在多个单元格，学分只计一次
	w, resp = call(h, "POST", "/api/v1/schedule/placements", token,
		map[string]string{"course_id": "INF101", "day": "Jueves", "block": "08:30-09:30"})
	if w.Code != http.StatusCreated {
		t.Fatalf("放置期望 201，实际 %d", w.Code)
	}
	sched := resp.Data.(map[string]interface{})["schedule"].(map[string]interface{})
	if sched["credits"].(float64) != 10 {
		t.Errorf("学分应为 10，实际 %v", sched["credits"])
	}

	// 删除第一条，课程仍在另一单元格
	w, resp = call(h, "DELETE", "/api/v1/schedule/placements/"+strconv.FormatInt(id, 10), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("删除期望 200，实际 %d", w.Code)
	}
	if resp.Data.(map[string]interface{})["credits"].(float64) != 10 {
		t.Error("课程仍有条目时学分不应减少")
	}

	// 导出
	w, _ = call(h, "GET", "/api/v1/export/xlsx", token, nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "PK") {
		t.Errorf("导出失败: %d", w.Code)
	}

	// 清空需确认
	w, _ = call(h, "DELETE", "/api/v1/schedule", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("未确认清空期望 400，实际 %d", w.Code)
	}
	w, resp = call(h, "DELETE", "/api/v1/schedule?confirm=true", token, nil)
	if w.Code != http.StatusOK || resp.Data.(map[string]interface{})["credits"].(float64) != 0 {
		t.Errorf("清空失败: %d", w.Code)
	}
}
