package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Nicoleon0812/calendario-carrera/config"
	"github.com/Nicoleon0812/calendario-carrera/internal/model"
	"github.com/Nicoleon0812/calendario-carrera/internal/repository"
	"github.com/Nicoleon0812/calendario-carrera/pkg/jwt"
)

var errDBDown = errors.New("dial tcp: connection refused")

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]model.Course
	failErr error
}

func newMockCourseRepo(courses ...model.Course) *mockCourseRepo {
	m := &mockCourseRepo{courses: make(map[string]model.Course)}
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return m
}

func (m *mockCourseRepo) List(_ context.Context) ([]model.Course, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	list := make([]model.Course, 0, len(m.courses))
	for _, c := range m.courses {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockCourseRepo) Upsert(_ context.Context, courses []model.Course) error {
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return nil
}

// ── Mock AllowListRepository ──

type mockAllowListRepo struct {
	users   map[string]*model.AllowedUser
	failErr error
	lookups []string
}

func newMockAllowListRepo() *mockAllowListRepo {
	return &mockAllowListRepo{users: make(map[string]*model.AllowedUser)}
}

func (m *mockAllowListRepo) GetByEmail(_ context.Context, email string) (*model.AllowedUser, error) {
	m.lookups = append(m.lookups, email)
	if m.failErr != nil {
		return nil, m.failErr
	}
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAllowListRepo) Upsert(_ context.Context, user *model.AllowedUser) error {
	m.users[user.Email] = user
	return nil
}

// ── Mock PlacementRepository ──

type mockPlacementRepo struct {
	mu     sync.Mutex
	rows   []model.Placement
	nextID int64

	failList, failCreate bool
	listDelay            time.Duration
	lists                int

	// 非 nil 时下一次 Create 先关闭 createStarted，再阻塞到 createGate 关闭
	createGate, createStarted chan struct{}
}

// blockNextCreate 让下一次 Create 停在写入之前，返回开始信号与放行函数
func (m *mockPlacementRepo) blockNextCreate() (started <-chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createGate = make(chan struct{})
	m.createStarted = make(chan struct{})
	return m.createStarted, func() { close(m.createGate) }
}

func newMockPlacementRepo(rows ...model.Placement) *mockPlacementRepo {
	m := &mockPlacementRepo{nextID: 1}
	for _, r := range rows {
		m.rows = append(m.rows, r)
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
	}
	return m
}

func (m *mockPlacementRepo) ListByEmail(ctx context.Context, email string) ([]model.Placement, error) {
	if m.listDelay > 0 {
		time.Sleep(m.listDelay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.failList {
		return nil, errDBDown
	}
	var out []model.Placement
	for _, r := range m.rows {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockPlacementRepo) Create(ctx context.Context, p *model.Placement) error {
	m.mu.Lock()
	gate, started := m.createGate, m.createStarted
	m.createGate, m.createStarted = nil, nil
	m.mu.Unlock()
	if gate != nil {
		close(started)
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errDBDown
	}
	p.ID = m.nextID
	m.nextID++
	m.rows = append(m.rows, *p)
	return nil
}

func (m *mockPlacementRepo) DeleteByID(_ context.Context, email string, id int64) error {
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

func (m *mockPlacementRepo) DeleteByEmail(_ context.Context, email string) error {
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

func (m *mockPlacementRepo) countIn(email, day, block string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.Email == email && r.Day == day && r.Block == block {
			n++
		}
	}
	return n
}

func (m *mockPlacementRepo) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.tokens == nil {
		m.tokens = make(map[string]time.Duration)
	}
	m.tokens[jti] = ttl
	return nil
}

// ── 测试辅助 ──

func testCourses() []model.Course {
	return []model.Course{
		{ID: "MAT101", Name: "Cálculo I", Credits: 3},
		{ID: "FIS101", Name: "Física General", Credits: 6},
		{ID: "INF101", Name: "Programación", Credits: 10},
		{ID: "HUM100", Name: "Ética", Credits: 2},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret-at-least-16",
			AccessTokenTTL: time.Hour,
		},
		Access: config.AccessConfig{
			Mode:    config.AccessModeDomainSuffix,
			Domains: []string{"@alumnos.ucm.cl", "@alum.ucm.cl", "@ucm.cl"},
		},
		Planner: config.PlannerConfig{
			CreditCeiling: 30,
			CellCapacity:  2,
			RemoteTimeout: time.Second,
		},
		Export: config.ExportConfig{
			SheetName: "Horario",
			TermStart: "2026-03-02",
			TermWeeks: 16,
			Timezone:  "UTC",
		},
	}
}

type testEnv struct {
	cfg        *config.Config
	svc        *Service
	jwtMgr     *jwt.Manager
	courses    *mockCourseRepo
	allowList  *mockAllowListRepo
	placements *mockPlacementRepo
	blacklist  *mockBlacklist
}

// setupTestEnv 构造已加载目录的服务聚合；mutate 可在构造前修改配置
func setupTestEnv(t *testing.T, mutate func(*config.Config), rows ...model.Placement) *testEnv {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	env := &testEnv{
		cfg:        cfg,
		courses:    newMockCourseRepo(testCourses()...),
		allowList:  newMockAllowListRepo(),
		placements: newMockPlacementRepo(rows...),
		blacklist:  &mockBlacklist{},
	}
	repo := &repository.Repository{
		Course:    env.courses,
		AllowList: env.allowList,
		Placement: env.placements,
	}
	env.jwtMgr = jwt.NewManager(&cfg.Auth)

	svc, err := NewService(cfg, repo, env.jwtMgr, env.blacklist, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService 失败: %v", err)
	}
	if err := svc.Catalog.Load(context.Background()); err != nil {
		t.Fatalf("加载目录失败: %v", err)
	}
	env.svc = svc
	return env
}
