package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Nicoleon0812/calendario-carrera/config"
	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
	"github.com/Nicoleon0812/calendario-carrera/internal/repository"
	"github.com/Nicoleon0812/calendario-carrera/pkg/metrics"
)

// PlannerService 按身份持有排课会话。
//
// 每个邮箱最多一个 planner.Session；登录时复用并原地重建已有会话，
// 若进程重启后请求携带旧 Token，则在首次访问时懒加载。
// 闲置超过 Token 有效期的会话会被回收。
type PlannerService interface {
	// Open 重建该身份的会话（已有会话原地重建）
	Open(ctx context.Context, identity planner.Identity) (*dto.ScheduleResponse, error)
	// Session 取已有会话，不存在时从远端重建
	Session(ctx context.Context, identity planner.Identity) (*planner.Session, error)
	GetSchedule(ctx context.Context, identity planner.Identity) (*dto.ScheduleResponse, error)
	Place(ctx context.Context, identity planner.Identity, req *dto.PlaceRequest) (*dto.PlaceResponse, error)
	Remove(ctx context.Context, identity planner.Identity, entryID int64) (*dto.ScheduleResponse, error)
	ClearAll(ctx context.Context, identity planner.Identity) (*dto.ScheduleResponse, error)
	// Close 释放会话（登出）
	Close(email string)
	// Sweep 回收闲置会话，返回回收数量
	Sweep() int
}

type sessionEntry struct {
	sess     *planner.Session
	lastSeen time.Time
}

type plannerService struct {
	catalog CatalogService
	store   planner.Store
	opts    planner.Options
	idleTTL time.Duration // <= 0 表示不回收
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	group    singleflight.Group
}

// NewPlannerService 创建 PlannerService 实例。idleTTL 一般取 Access Token 有效期
func NewPlannerService(
	cfg *config.PlannerConfig,
	repo *repository.Repository,
	catalog CatalogService,
	idleTTL time.Duration,
	logger *zap.Logger,
) PlannerService {
	return &plannerService{
		catalog: catalog,
		store:   repo.Placement,
		opts: planner.Options{
			Rules: planner.Rules{
				CellCapacity:  cfg.CellCapacity,
				CreditCeiling: cfg.CreditCeiling,
			},
			Timeout: cfg.RemoteTimeout,
			Logger:  logger,
		},
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

func (s *plannerService) Open(ctx context.Context, identity planner.Identity) (*dto.ScheduleResponse, error) {
	sess, err := s.open(ctx, identity, true)
	if err != nil {
		return nil, err
	}
	return toScheduleResponse(sess.Snapshot()), nil
}

// open 同一邮箱的并发重建只执行一次。
// 已有会话时 reload=true 原地重建，否则直接复用；会话对象一经创建不再替换
func (s *plannerService) open(ctx context.Context, identity planner.Identity, reload bool) (*planner.Session, error) {
	v, err, _ := s.group.Do(identity.Email, func() (interface{}, error) {
		// 共享结果不受首个调用方断开影响，远端超时仍然生效
		ctx := context.WithoutCancel(ctx)

		if sess, ok := s.lookup(identity.Email); ok {
			if !reload {
				return sess, nil
			}
			if err := sess.Reload(ctx); err != nil {
				metrics.PlannerOps.WithLabelValues("reconstruct", "error").Inc()
				return nil, err
			}
			metrics.PlannerOps.WithLabelValues("reconstruct", "ok").Inc()
			return sess, nil
		}

		sess, err := planner.Open(ctx, identity, s.catalog.Catalog(), s.store, s.opts)
		if err != nil {
			metrics.PlannerOps.WithLabelValues("reconstruct", "error").Inc()
			return nil, err
		}
		metrics.PlannerOps.WithLabelValues("reconstruct", "ok").Inc()

		s.mu.Lock()
		s.sessions[identity.Email] = &sessionEntry{sess: sess, lastSeen: s.now()}
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
		s.mu.Unlock()
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*planner.Session), nil
}

// lookup 取会话并刷新访问时间，已过期的视为不存在
func (s *plannerService) lookup(email string) (*planner.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[email]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.sessions, email)
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
		return nil, false
	}
	e.lastSeen = now
	return e.sess, true
}

func (s *plannerService) expired(e *sessionEntry, now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(e.lastSeen) > s.idleTTL
}

func (s *plannerService) Session(ctx context.Context, identity planner.Identity) (*planner.Session, error) {
	if sess, ok := s.lookup(identity.Email); ok {
		return sess, nil
	}
	return s.open(ctx, identity, false)
}

func (s *plannerService) GetSchedule(ctx context.Context, identity planner.Identity) (*dto.ScheduleResponse, error) {
	sess, err := s.Session(ctx, identity)
	if err != nil {
		return nil, err
	}
	return toScheduleResponse(sess.Snapshot()), nil
}

func (s *plannerService) Place(ctx context.Context, identity planner.Identity, req *dto.PlaceRequest) (*dto.PlaceResponse, error) {
	slot, err := planner.ParseSlot(req.Day, req.Block)
	if err != nil {
		return nil, err
	}
	sess, err := s.Session(ctx, identity)
	if err != nil {
		return nil, err
	}

	entry, placed, err := sess.Place(ctx, req.CourseID, slot)
	if err != nil {
		s.observe("place", err)
		return nil, err
	}
	if placed {
		metrics.PlannerOps.WithLabelValues("place", "ok").Inc()
	} else {
		metrics.PlannerOps.WithLabelValues("place", "skipped").Inc()
	}

	return &dto.PlaceResponse{
		Entry:    toEntryResponse(entry),
		Placed:   placed,
		Schedule: *toScheduleResponse(sess.Snapshot()),
	}, nil
}

func (s *plannerService) Remove(ctx context.Context, identity planner.Identity, entryID int64) (*dto.ScheduleResponse, error) {
	sess, err := s.Session(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := sess.Remove(ctx, entryID); err != nil {
		s.observe("remove", err)
		return nil, err
	}
	metrics.PlannerOps.WithLabelValues("remove", "ok").Inc()
	return toScheduleResponse(sess.Snapshot()), nil
}

func (s *plannerService) ClearAll(ctx context.Context, identity planner.Identity) (*dto.ScheduleResponse, error) {
	sess, err := s.Session(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := sess.ClearAll(ctx); err != nil {
		s.observe("clear", err)
		return nil, err
	}
	metrics.PlannerOps.WithLabelValues("clear", "ok").Inc()
	return toScheduleResponse(sess.Snapshot()), nil
}

func (s *plannerService) Close(email string) {
	s.mu.Lock()
	delete(s.sessions, email)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
}

func (s *plannerService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for email, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, email)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	if removed > 0 {
		s.logger.Info("回收闲置会话", zap.Int("removed", removed), zap.Int("active", len(s.sessions)))
	}
	return removed
}

// observe 持久化失败记为 error，其余为约束拒绝
func (s *plannerService) observe(op string, err error) {
	result := "rejected"
	if errors.Is(err, planner.ErrPersistence) {
		result = "error"
	}
	metrics.PlannerOps.WithLabelValues(op, result).Inc()
}

// ── 转换 ──

func toEntryResponse(e planner.Entry) dto.EntryResponse {
	return dto.EntryResponse{
		ID:       e.ID,
		CourseID: e.Course.ID,
		Name:     e.Course.Name,
		Credits:  e.Course.Credits,
		Day:      string(e.Slot.Day),
		Block:    string(e.Slot.Block),
		Color:    planner.ColorFor(e.Course.Name),
	}
}

func toScheduleResponse(snap planner.Snapshot) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		Email:         snap.Identity.Email,
		Name:          snap.Identity.Name,
		Entries:       make([]dto.EntryResponse, 0, len(snap.Entries)),
		Credits:       snap.Credits,
		CreditCeiling: snap.CreditCeiling,
		CellCapacity:  snap.CellCapacity,
		OverCeiling:   snap.OverCeiling(),
	}
	for _, e := range snap.Entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	for _, w := range snap.Warnings {
		resp.Warnings = append(resp.Warnings, dto.WarningResponse{
			RowID:    w.RowID,
			CourseID: w.CourseID,
			Day:      w.Day,
			Block:    w.Block,
			Reason:   string(w.Reason),
		})
	}
	return resp
}
