package manager

import (
	"context"
	"testing"
	"time"

	"CoolerPoker/internal/game/table"
	"CoolerPoker/internal/tournament"
	"CoolerPoker/internal/websocket"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRoster 账本名单固定返回
type staticRoster struct {
	balances  []int64
	addresses []string
}

func (r staticRoster) Roster(ctx context.Context, contract string) ([]int64, []string, error) {
	return r.balances, r.addresses, nil
}

func (r staticRoster) SeedRoster(ctx context.Context, contract string, balances []int64, addresses []string) error {
	return nil
}

// wire 按 cmd 的方式把锦标赛服务和 GameManager 接起来
func wire(t *testing.T, roster tournament.Roster) (*tournament.Service, *GameManager, *miniredis.Miniredis, *mockHub) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := newMockHub()
	var svc *tournament.Service
	mgr := NewGameManager(hub, Config{
		Session: Options{Clock: quartz.NewMock(t), Seed: 3},
		OnTournamentOver: func(tn *tournament.Tournament) {
			_ = svc.Complete(context.Background(), tn.ID)
		},
	})
	t.Cleanup(mgr.StopAll)

	svc = tournament.NewService(tournament.NewRedisRepo(rdb), time.Hour, roster)
	svc.OnCreated = mgr.StartSession
	svc.OnFinished = func(tn *tournament.Tournament) { mgr.StopSession(tn.ID) }
	return svc, mgr, mr, hub
}

func createReq() tournament.CreateRequest {
	return tournament.CreateRequest{Address: human, Mode: table.ModeNormal, BotCount: 2}
}

// 记录过期后玩家仍能开新局，旧会话被取代
func TestExpiredTournamentDoesNotLockPlayer(t *testing.T) {
	svc, mgr, mr, _ := wire(t, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, createReq())
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	assert.ErrorIs(t, svc.Finish(ctx, first.ID, human), tournament.ErrNotFound)

	second, err := svc.Create(ctx, createReq())
	require.NoError(t, err)

	_, ok := mgr.Session(first.ID)
	assert.False(t, ok, "orphaned session stopped")
	_, ok = mgr.Session(second.ID)
	assert.True(t, ok)

	require.NoError(t, svc.Finish(ctx, second.ID, human))
	_, ok = mgr.Session(second.ID)
	assert.False(t, ok)
}

// 分出胜负后会话退出，记录删除，玩家可以再开
func TestFinishedTournamentCleansUp(t *testing.T) {
	svc, mgr, _, hub := wire(t, staticRoster{
		balances:  []int64{3000, 0, 0},
		addresses: []string{human, "", ""},
	})
	ctx := context.Background()

	req := createReq()
	req.ContractAddress = "0x00000000000000000000000000000000000c0ffe"
	tn, err := svc.Create(ctx, req)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := mgr.Session(tn.ID)
		return !ok
	}, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := svc.Get(ctx, tn.ID)
		return err != nil
	}, 2*time.Second, time.Millisecond)
	_, err = svc.Get(ctx, tn.ID)
	assert.ErrorIs(t, err, tournament.ErrNotFound)

	msg, ok := hub.last(human, websocket.EventTournamentOver)
	require.True(t, ok)
	assert.Equal(t, 0, msg.Data.(map[string]any)["winner"])

	_, err = svc.Create(ctx, createReq())
	assert.NoError(t, err)
}
