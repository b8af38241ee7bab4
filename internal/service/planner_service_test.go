package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Nicoleon0812/calendario-carrera/internal/dto"
	"github.com/Nicoleon0812/calendario-carrera/internal/model"
	"github.com/Nicoleon0812/calendario-carrera/internal/planner"
	"github.com/Nicoleon0812/calendario-carrera/internal/repository"
)

func identityOf(email string) planner.Identity {
	return planner.Identity{Email: email}
}

func TestPlannerService_PlaceAndRemove(t *testing.T) {
	env := setupTestEnv(t, nil)
	ctx := context.Background()
	ana := identityOf("ana@ucm.cl")

	resp, err := env.svc.Planner.Place(ctx, ana, &dto.PlaceRequest{CourseID: "MAT101", Day: "miercoles", Block: "08:30 - 09:30"})
	if err != nil {
		t.Fatalf("放置失败: %v", err)
	}
	if !resp.Placed {
		t.Error("首次放置应返回 placed=true")
	}
	if resp.Entry.Day != "Miércoles" || resp.Entry.Block != "08:30-09:30" {
		t.Errorf("单元格应规范化，实际: %s %s", resp.Entry.Day, resp.Entry.Block)
	}
	if resp.Entry.Color == "" {
		t.Error("条目应带颜色")
	}
	if resp.Schedule.Credits != 3 {
		t.Errorf("期望学分 3，实际: %d", resp.Schedule.Credits)
	}

	// 幂等
	again, err := env.svc.Planner.Place(ctx, ana, &dto.PlaceRequest{CourseID: "MAT101", Day: "Miércoles", Block: "08:30-09:30"})
	if err != nil {
		t.Fatalf("重复放置不应报错: %v", err)
	}
	if again.Placed || again.Entry.ID != resp.Entry.ID {
		t.Errorf("重复放置应返回已有条目且 placed=false，实际: %+v", again)
	}

	sched, err := env.svc.Planner.Remove(ctx, ana, resp.Entry.ID)
	if err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if len(sched.Entries) != 0 || sched.Credits != 0 {
		t.Errorf("删除后课表应为空，实际: %+v", sched)
	}
}

func TestPlannerService_Place_InvalidSlot(t *testing.T) {
	env := setupTestEnv(t, nil)

	_, err := env.svc.Planner.Place(context.Background(), identityOf("ana@ucm.cl"),
		&dto.PlaceRequest{CourseID: "MAT101", Day: "Domingo", Block: "08:30-09:30"})
	if !errors.Is(err, planner.ErrInvalidSlot) {
		t.Errorf("期望 ErrInvalidSlot，实际: %v", err)
	}
}

func TestPlannerService_Place_PersistenceError(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.placements.failCreate = true
	ana := identityOf("ana@ucm.cl")

	_, err := env.svc.Planner.Place(context.Background(), ana,
		&dto.PlaceRequest{CourseID: "MAT101", Day: "Lunes", Block: "08:30-09:30"})
	if !errors.Is(err, planner.ErrPersistence) {
		t.Fatalf("期望 ErrPersistence，实际: %v", err)
	}

	sched, _ := env.svc.Planner.GetSchedule(context.Background(), ana)
	if len(sched.Entries) != 0 {
		t.Error("远端失败后本地状态不应改变")
	}
}

func TestPlannerService_ClearAll_OnlyOwnRows(t *testing.T) {
	env := setupTestEnv(t, nil,
		model.Placement{ID: 1, Email: "ana@ucm.cl", CourseID: "MAT101", Day: "Lunes", Block: "08:30-09:30"},
		model.Placement{ID: 2, Email: "ana@ucm.cl", CourseID: "FIS101", Day: "Martes", Block: "08:30-09:30"},
		model.Placement{ID: 3, Email: "luis@ucm.cl", CourseID: "FIS101", Day: "Martes", Block: "08:30-09:30"},
	)
	ctx := context.Background()

	sched, err := env.svc.Planner.ClearAll(ctx, identityOf("ana@ucm.cl"))
	if err != nil {
		t.Fatalf("清空失败: %v", err)
	}
	if len(sched.Entries) != 0 || sched.Credits != 0 {
		t.Errorf("清空后课表应为空，实际: %+v", sched)
	}

	luis, err := env.svc.Planner.GetSchedule(ctx, identityOf("luis@ucm.cl"))
	if err != nil {
		t.Fatalf("读取课表失败: %v", err)
	}
	if len(luis.Entries) != 1 {
		t.Errorf("其他身份的数据不应受影响，实际: %d 条", len(luis.Entries))
	}
}

func TestPlannerService_Warnings(t *testing.T) {
	env := setupTestEnv(t, nil,
		model.Placement{ID: 1, Email: "ana@ucm.cl", CourseID: "MAT101", Day: "Lunes", Block: "08:30-09:30"},
		model.Placement{ID: 2, Email: "ana@ucm.cl", CourseID: "UNKNOWN99", Day: "Martes", Block: "09:35-10:35"},
	)

	sched, err := env.svc.Planner.Open(context.Background(), identityOf("ana@ucm.cl"))
	if err != nil {
		t.Fatalf("重建失败: %v", err)
	}
	if len(sched.Entries) != 1 || sched.Credits != 3 {
		t.Errorf("期望 1 条、3 学分，实际: %+v", sched)
	}
	if len(sched.Warnings) != 1 || sched.Warnings[0].Reason != "unknown_course" {
		t.Errorf("期望一条 unknown_course 告警，实际: %+v", sched.Warnings)
	}
}

func TestPlannerService_ConcurrentOpenIsShared(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.placements.listDelay = 50 * time.Millisecond
	ana := identityOf("ana@ucm.cl")

	var wg sync.WaitGroup
	sessions := make([]*planner.Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := env.svc.Planner.Session(context.Background(), ana)
			if err != nil {
				t.Errorf("获取会话失败: %v", err)
				return
			}
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	for _, s := range sessions[1:] {
		if s != sessions[0] {
			t.Fatal("并发获取应得到同一会话")
		}
	}
	if n := env.placements.listCalls(); n != 1 {
		t.Errorf("并发重建应只拉取一次远端，实际: %d", n)
	}
}

func TestPlannerService_CatalogNotLoaded(t *testing.T) {
	env := setupTestEnv(t, nil)
	repo := &repository.Repository{Placement: env.placements}
	svc := NewPlannerService(&env.cfg.Planner, repo, NewCatalogService(repo, zap.NewNop()), time.Hour, zap.NewNop())

	_, err := svc.Open(context.Background(), identityOf("ana@ucm.cl"))
	if !errors.Is(err, planner.ErrCatalogNotLoaded) {
		t.Errorf("期望 ErrCatalogNotLoaded，实际: %v", err)
	}
}

func TestPlannerService_ReloginDuringPlaceKeepsSession(t *testing.T) {
	env := setupTestEnv(t, nil,
		model.Placement{ID: 1, Email: "ana@ucm.cl", CourseID: "MAT101", Day: "Lunes", Block: "08:30-09:30"},
	)
	ctx := context.Background()
	ana := identityOf("ana@ucm.cl")

	before, err := env.svc.Planner.Session(ctx, ana)
	if err != nil {
		t.Fatalf("获取会话失败: %v", err)
	}

	started, release := env.placements.blockNextCreate()
	placed := make(chan error, 1)
	go func() {
		_, err := env.svc.Planner.Place(ctx, ana, &dto.PlaceRequest{CourseID: "INF101", Day: "Lunes", Block: "08:30-09:30"})
		placed <- err
	}()
	<-started

	// 另一个标签页在写入进行中重新登录
	reopened := make(chan error, 1)
	go func() {
		_, err := env.svc.Planner.Open(ctx, ana)
		reopened <- err
	}()
	time.Sleep(20 * time.Millisecond)
	release()

	if err := <-placed; err != nil {
		t.Fatalf("放置失败: %v", err)
	}
	if err := <-reopened; err != nil {
		t.Fatalf("重新登录失败: %v", err)
	}

	after, err := env.svc.Planner.Session(ctx, ana)
	if err != nil {
		t.Fatalf("获取会话失败: %v", err)
	}
	if after != before {
		t.Error("重新登录应复用已有会话")
	}

	sched, _ := env.svc.Planner.GetSchedule(ctx, ana)
	if got, want := len(sched.Entries), env.placements.countIn("ana@ucm.cl", "Lunes", "08:30-09:30"); got != want {
		t.Fatalf("会话与远端不一致: 本地 %d 条，远端 %d 行", got, want)
	}

	_, err = env.svc.Planner.Place(ctx, ana, &dto.PlaceRequest{CourseID: "FIS101", Day: "Lunes", Block: "08:30-09:30"})
	if !errors.Is(err, planner.ErrCapacityExceeded) {
		t.Errorf("期望 ErrCapacityExceeded，实际: %v", err)
	}
	if n := env.placements.countIn("ana@ucm.cl", "Lunes", "08:30-09:30"); n != 2 {
		t.Errorf("单元格应保持 2 行，实际 %d", n)
	}
}

func TestPlannerService_OpenReloadsExistingSession(t *testing.T) {
	env := setupTestEnv(t, nil)
	ctx := context.Background()
	ana := identityOf("ana@ucm.cl")

	sess, err := env.svc.Planner.Session(ctx, ana)
	if err != nil {
		t.Fatalf("获取会话失败: %v", err)
	}

	// 其他设备写入的行在下次登录时可见
	env.placements.Create(ctx, &model.Placement{Email: "ana@ucm.cl", CourseID: "HUM100", Day: "Martes", Block: "09:35-10:35"})

	sched, err := env.svc.Planner.Open(ctx, ana)
	if err != nil {
		t.Fatalf("重新登录失败: %v", err)
	}
	if len(sched.Entries) != 1 || sched.Credits != 2 {
		t.Errorf("期望重建出 1 条、2 学分，实际: %+v", sched)
	}
	if again, _ := env.svc.Planner.Session(ctx, ana); again != sess {
		t.Error("重新登录不应替换会话对象")
	}
}

func TestPlannerService_SharedOpenSurvivesCanceledCaller(t *testing.T) {
	env := setupTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := env.svc.Planner.Open(ctx, identityOf("ana@ucm.cl")); err != nil {
		t.Errorf("调用方断开不应使共享重建失败: %v", err)
	}
}

func TestPlannerService_IdleSessionsEvicted(t *testing.T) {
	env := setupTestEnv(t, nil)
	repo := &repository.Repository{Placement: env.placements}
	svc := NewPlannerService(&env.cfg.Planner, repo, env.svc.Catalog, time.Hour, zap.NewNop()).(*plannerService)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := svc.Open(ctx, identityOf("ana@ucm.cl")); err != nil {
		t.Fatalf("重建失败: %v", err)
	}
	if _, err := svc.Open(ctx, identityOf("luis@ucm.cl")); err != nil {
		t.Fatalf("重建失败: %v", err)
	}

	now = now.Add(40 * time.Minute)
	if _, err := svc.Session(ctx, identityOf("luis@ucm.cl")); err != nil {
		t.Fatalf("获取会话失败: %v", err)
	}

	now = now.Add(30 * time.Minute)
	if n := svc.Sweep(); n != 1 {
		t.Errorf("期望回收 1 个闲置会话，实际 %d", n)
	}
	if _, ok := svc.sessions["luis@ucm.cl"]; !ok {
		t.Error("近期访问过的会话不应回收")
	}

	// 过期会话在下次访问时从远端重建
	lists := env.placements.listCalls()
	now = now.Add(2 * time.Hour)
	if _, err := svc.Session(ctx, identityOf("luis@ucm.cl")); err != nil {
		t.Fatalf("获取会话失败: %v", err)
	}
	if env.placements.listCalls() != lists+1 {
		t.Error("过期会话应重新拉取远端")
	}
}
