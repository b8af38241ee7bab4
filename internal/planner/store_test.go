package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/Nicoleon0812/calendario-carrera/internal/model"
)

var errRemoteDown = errors.New("connection refused")

// memStore 内存行存储，可注入失败
type memStore struct {
	mu     sync.Mutex
	rows   []model.Placement
	nextID int64

	failList, failCreate, failDelete, failDeleteAll bool
	block                                           chan struct{} // 非 nil 时 Create 阻塞直到关闭或 ctx 结束

	creates, deletes, deleteAlls int
}

func newMemStore(rows ...model.Placement) *memStore {
	s := &memStore{nextID: 1}
	for _, r := range rows {
		s.rows = append(s.rows, r)
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
	}
	return s
}

func (s *memStore) ListByEmail(_ context.Context, email string) ([]model.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errRemoteDown
	}
	var out []model.Placement
	for _, r := range s.rows {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Create(ctx context.Context, p *model.Placement) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.failCreate {
		return errRemoteDown
	}
	p.ID = s.nextID
	s.nextID++
	s.rows = append(s.rows, *p)
	return nil
}

func (s *memStore) DeleteByID(_ context.Context, email string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.failDelete {
		return errRemoteDown
	}
	kept := s.rows[:0]
	for _, r := range s.rows {
		if !(r.ID == id && r.Email == email) {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *memStore) DeleteByEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteAlls++
	if s.failDeleteAll {
		return errRemoteDown
	}
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.Email != email {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *memStore) count(email string) int {
	rows, _ := s.ListByEmail(context.Background(), email)
	return len(rows)
}
