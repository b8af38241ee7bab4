package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Nicoleon0812/calendario-carrera/internal/model"
	pkgerrors "github.com/Nicoleon0812/calendario-carrera/pkg/errors"
	"github.com/Nicoleon0812/calendario-carrera/pkg/metrics"
)

// Store 远端行存储。所有删除都限定在 email 范围内。
type Store interface {
	ListByEmail(ctx context.Context, email string) ([]model.Placement, error)
	// Create 插入一行，成功后 p.ID 为存储分配的 ID
	Create(ctx context.Context, p *model.Placement) error
	DeleteByID(ctx context.Context, email string, id int64) error
	DeleteByEmail(ctx context.Context, email string) error
}

// Options 会话参数
type Options struct {
	Rules   Rules
	Timeout time.Duration // 单次远端调用上限
	Logger  *zap.Logger
}

const defaultRemoteTimeout = 10 * time.Second

// Session 一个身份的排课会话。
//
// 变更操作（Place / Remove / ClearAll）由 op 串行化，op 在远端调用期间保持持有；
// 状态本身由 mu 保护，读操作只短暂持有读锁，不会等待远端。
type Session struct {
	identity Identity
	catalog  *Catalog
	store    Store
	rules    Rules
	timeout  time.Duration
	logger   *zap.Logger

	op       sync.Mutex
	mu       sync.RWMutex
	state    *Schedule
	warnings []Warning
}

// Open 拉取远端行并重建课表。目录必须已加载。
func Open(ctx context.Context, identity Identity, catalog *Catalog, store Store, opts Options) (*Session, error) {
	if catalog == nil {
		return nil, ErrCatalogNotLoaded
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRemoteTimeout
	}
	if opts.Rules == (Rules{}) {
		opts.Rules = DefaultRules()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		identity: identity,
		catalog:  catalog,
		store:    store,
		rules:    opts.Rules,
		timeout:  opts.Timeout,
		logger:   opts.Logger.With(zap.String("email", identity.Email)),
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload 重新拉取远端行并原地替换状态。
//
// 与变更操作共用 op：进行中的 Place / Remove / ClearAll 完成后才读取远端。
// 失败时保留原状态。
func (s *Session) Reload(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.load(ctx)
}

// load 拉取远端行、重建并替换 state / warnings。调用方负责串行化
func (s *Session) load(ctx context.Context) error {
	var rows []model.Placement
	err := s.remote(ctx, "select", func(ctx context.Context) error {
		var err error
		rows, err = s.store.ListByEmail(ctx, s.identity.Email)
		return err
	})
	if err != nil {
		return err
	}

	state, warnings := Reconstruct(rows, s.catalog)
	for _, w := range warnings {
		metrics.DroppedRows.WithLabelValues(string(w.Reason)).Inc()
		s.logger.Warn("重建课表时跳过数据行",
			zap.Int64("row_id", w.RowID),
			zap.String("course_id", w.CourseID),
			zap.String("day", w.Day),
			zap.String("block", w.Block),
			zap.String("reason", string(w.Reason)),
		)
	}

	s.mu.Lock()
	s.state = state
	s.warnings = warnings
	s.mu.Unlock()

	s.logger.Info("课表重建完成",
		zap.Int("rows", len(rows)),
		zap.Int("entries", state.Len()),
		zap.Int("credits", state.Credits()),
	)
	return nil
}

// Identity 会话身份
func (s *Session) Identity() Identity {
	return s.identity
}

// Rules 会话使用的约束
func (s *Session) Rules() Rules {
	return s.rules
}

// Place 把课程放进单元格。
//
// placed=false 且 err=nil 表示该课程已在该单元格，未做任何写入。
func (s *Session) Place(ctx context.Context, courseID string, slot Slot) (Entry, bool, error) {
	s.op.Lock()
	defer s.op.Unlock()

	course, ok := s.catalog.Get(courseID)
	if !ok {
		return Entry{}, false, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
	}
	if slot.Day.Index() < 0 || slot.Block.Index() < 0 {
		return Entry{}, false, fmt.Errorf("%w: %s", ErrInvalidSlot, slot)
	}

	s.mu.RLock()
	existing, dup, err := s.rules.Check(s.state, course, slot)
	s.mu.RUnlock()
	if err != nil {
		return Entry{}, false, err
	}
	if dup {
		return existing, false, nil
	}

	row := &model.Placement{
		Email:    s.identity.Email,
		CourseID: course.ID,
		Day:      string(slot.Day),
		Block:    string(slot.Block),
	}
	if err := s.remote(ctx, "insert", func(ctx context.Context) error { return s.store.Create(ctx, row) }); err != nil {
		return Entry{}, false, err
	}
	if row.ID == 0 {
		return Entry{}, false, fmt.Errorf("%w: insert: el almacenamiento no asignó identificador", ErrPersistence)
	}

	entry := Entry{ID: row.ID, Course: course, Slot: slot}
	s.mu.Lock()
	s.state.add(entry)
	s.mu.Unlock()

	return entry, true, nil
}

// Remove 先删除远端行，成功后再移除本地条目
func (s *Session) Remove(ctx context.Context, id int64) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	_, ok := s.state.Entry(id)
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}

	if err := s.remote(ctx, "delete", func(ctx context.Context) error {
		return s.store.DeleteByID(ctx, s.identity.Email, id)
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.remove(id)
	s.mu.Unlock()
	return nil
}

// ClearAll 删除该身份的全部远端行，成功后清空本地课表
func (s *Session) ClearAll(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.remote(ctx, "delete_all", func(ctx context.Context) error {
		return s.store.DeleteByEmail(ctx, s.identity.Email)
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.reset()
	s.warnings = nil
	s.mu.Unlock()
	return nil
}

// Snapshot 课表只读快照
type Snapshot struct {
	Identity      Identity
	Entries       []Entry
	Credits       int
	CreditCeiling int
	CellCapacity  int
	Warnings      []Warning
}

// Cell 快照中某单元格的条目
func (sn Snapshot) Cell(slot Slot) []Entry {
	var out []Entry
	for _, e := range sn.Entries {
		if e.Slot == slot {
			out = append(out, e)
		}
	}
	return out
}

// OverCeiling 学分是否已超过上限（只可能来自外部修改的历史数据）
func (sn Snapshot) OverCeiling() bool {
	return sn.Credits > sn.CreditCeiling
}

// Snapshot 读取当前状态，不等待进行中的变更
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	warnings := make([]Warning, len(s.warnings))
	copy(warnings, s.warnings)
	return Snapshot{
		Identity:      s.identity,
		Entries:       s.state.Entries(),
		Credits:       s.state.Credits(),
		CreditCeiling: s.rules.CreditCeiling,
		CellCapacity:  s.rules.CellCapacity,
		Warnings:      warnings,
	}
}

// remote 在超时内执行远端调用，任何失败都包装为 ErrPersistence
func (s *Session) remote(ctx context.Context, op string, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := call(ctx)
	metrics.ObserveRemote(op, start)
	if err == nil {
		return nil
	}

	s.logger.Error("远端存储调用失败", zap.String("op", op), zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, pkgerrors.ErrRemoteTimeout)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
