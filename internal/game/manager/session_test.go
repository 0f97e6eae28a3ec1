package manager

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"CoolerPoker/internal/game/engine"
	"CoolerPoker/internal/game/table"
	"CoolerPoker/internal/websocket"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const human = "0xA"

// mockHub 实现 HubInterface，按地址记录消息
type mockHub struct {
	mu   sync.Mutex
	sent map[string][]websocket.OutgoingMessage
}

func newMockHub() *mockHub {
	return &mockHub{sent: make(map[string][]websocket.OutgoingMessage)}
}

func (h *mockHub) BroadcastToPlayers(addrs []string, msg websocket.OutgoingMessage) {
	for _, a := range addrs {
		h.SendToPlayer(a, msg)
	}
}

func (h *mockHub) ClientByAddress(addr string) (*websocket.Client, bool) { return nil, false }

func (h *mockHub) SendToPlayer(addr string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent[addr] = append(h.sent[addr], msg)
}

func (h *mockHub) Close() {}

func (h *mockHub) events(addr string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.sent[addr] {
		out = append(out, m.Event)
	}
	return out
}

func (h *mockHub) last(addr, event string) (websocket.OutgoingMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := h.sent[addr]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return msgs[i], true
		}
	}
	return websocket.OutgoingMessage{}, false
}

func (h *mockHub) count(addr, event string) int {
	n := 0
	for _, e := range h.events(addr) {
		if e == event {
			n++
		}
	}
	return n
}

// fakeResolver 阻塞到测试给出结果
type fakeResolver struct {
	reqs    chan engine.ShowdownRequest
	replies chan reply
}

type reply struct {
	res engine.ShowdownResult
	err error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{reqs: make(chan engine.ShowdownRequest, 8), replies: make(chan reply, 1)}
}

func (f *fakeResolver) Resolve(ctx context.Context, req engine.ShowdownRequest) (engine.ShowdownResult, error) {
	f.reqs <- req
	select {
	case r := <-f.replies:
		return r.res, r.err
	case <-ctx.Done():
		return engine.ShowdownResult{}, ctx.Err()
	}
}

// newSession 不启动事件循环，测试里直接调用 handle
func newSession(t *testing.T, chair int, resolver Resolver) (*Session, *mockHub) {
	t.Helper()
	initial, err := engine.CreateInitialGameState(engine.Setup{
		BotCount:   2,
		HumanChair: chair,
		Mode:       table.ModeNormal,
	})
	require.NoError(t, err)

	hub := newMockHub()
	s := NewSession("t-1", human, initial, hub, resolver, Options{
		BotDelay: time.Second,
		Seed:     42,
		Clock:    quartz.NewMock(t),
	})
	return s, hub
}

func playerEvent(t *testing.T, ev string, data any) event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return event{kind: evPlayer, msg: websocket.IncomingMessage{From: human, Event: ev, Data: raw}}
}

// playOut 人类能过就过、否则跟注，机器人按当前回合号行动，直到本手结束
func playOut(t *testing.T, s *Session) {
	t.Helper()
	for i := 0; i < 200 && !s.state.IsHandComplete; i++ {
		idx := s.state.CurrentTurnIndex
		p := s.state.Players[idx]
		if p.IsHuman {
			a := engine.Check
			if s.state.CurrentBet > p.CurrentBet {
				a = engine.Call
			}
			s.handle(playerEvent(t, websocket.EventPlayerAction, ActionPayload{Action: a}))
			continue
		}
		s.handle(event{kind: evBotTurn, hand: s.state.HandNumber, seq: s.turnSeq})
	}
	require.True(t, s.state.IsHandComplete, "hand did not finish")
}

// awaitResolved 取出 resolver 协程投递回来的事件
func awaitResolved(t *testing.T, s *Session) event {
	t.Helper()
	select {
	case ev := <-s.events:
		require.Equal(t, evResolved, ev.kind)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("resolver result never posted")
		return event{}
	}
}

// potTo 账本结果：底池全给第一个没弃牌的座位
func potTo(s *engine.GameState) (engine.ShowdownResult, int) {
	w := -1
	bal := make([]int64, len(s.Players))
	for i, p := range s.Players {
		bal[i] = p.Balance
		if w < 0 && !p.Folded && p.InGame {
			w = i
		}
	}
	bal[w] += s.Pot
	return engine.ShowdownResult{Balances: bal, WinnerIndex: int64(w)}, w
}

func total(s *engine.GameState) int64 {
	var sum int64
	for _, p := range s.Players {
		sum += p.Balance
	}
	return sum
}

func TestHumanActionValidation(t *testing.T) {
	// 人类坐 1 号位：首手翻牌前第一个行动，欠 20
	s, hub := newSession(t, 1, nil)
	s.handle(event{kind: evStart})

	require.Equal(t, 1, s.state.HandNumber)
	require.Equal(t, 1, s.state.CurrentTurnIndex)
	assert.Equal(t, []string{websocket.EventState, websocket.EventYourTurn}, hub.events(human))

	_, v0 := s.State()
	s.handle(playerEvent(t, websocket.EventPlayerAction, ActionPayload{Action: engine.Check}))
	msg, ok := hub.last(human, websocket.EventActionRejected)
	require.True(t, ok)
	assert.Contains(t, msg.Data.(map[string]any)["error"], engine.ErrInvalidAction.Error())
	_, v1 := s.State()
	assert.Equal(t, v0, v1, "rejected action does not publish")

	s.handle(playerEvent(t, websocket.EventPlayerAction, ActionPayload{Action: engine.Raise, Amount: 20}))
	assert.Equal(t, 2, hub.count(human, websocket.EventActionRejected), "raise must exceed the table bet")

	s.handle(playerEvent(t, websocket.EventPlayerAction, ActionPayload{Action: engine.Call}))
	assert.Equal(t, 2, s.state.CurrentTurnIndex)
	assert.Equal(t, int64(50), s.state.Pot)

	// 不是自己的回合
	s.handle(playerEvent(t, websocket.EventPlayerAction, ActionPayload{Action: engine.Call}))
	msg, _ = hub.last(human, websocket.EventActionRejected)
	assert.Equal(t, errNotYourTurn.Error(), msg.Data.(map[string]any)["error"])

	// 坏 JSON
	s.handle(event{kind: evPlayer, msg: websocket.IncomingMessage{From: human, Event: websocket.EventPlayerAction, Data: json.RawMessage(`{`)}})
	assert.Equal(t, 4, hub.count(human, websocket.EventActionRejected))
}

func TestStaleBotTurnDropped(t *testing.T) {
	s, _ := newSession(t, 0, nil)
	s.handle(event{kind: evStart})
	require.False(t, s.state.Players[s.state.CurrentTurnIndex].IsHuman)

	before := s.state
	s.handle(event{kind: evBotTurn, hand: s.state.HandNumber, seq: s.turnSeq - 1})
	s.handle(event{kind: evBotTurn, hand: s.state.HandNumber + 1, seq: s.turnSeq})
	assert.Same(t, before, s.state)

	seq := s.turnSeq
	s.handle(event{kind: evBotTurn, hand: s.state.HandNumber, seq: seq})
	assert.NotSame(t, before, s.state)

	// 同一个定时器事件第二次到达时已经过期
	after := s.state
	s.handle(event{kind: evBotTurn, hand: after.HandNumber, seq: seq})
	assert.Same(t, after, s.state)
}

func TestLocalResolutionWithoutLedger(t *testing.T) {
	s, hub := newSession(t, 0, nil)
	s.handle(event{kind: evStart})
	playOut(t, s)

	assert.True(t, s.state.Resolved)
	assert.NotEmpty(t, s.state.Winners)
	assert.Equal(t, int64(3000), total(s.state))

	msg, ok := hub.last(human, websocket.EventShowdownResult)
	require.True(t, ok)
	assert.Equal(t, "local", msg.Data.(map[string]any)["source"])

	s.handle(playerEvent(t, websocket.EventNextHand, nil))
	assert.Equal(t, 2, s.state.HandNumber)
	assert.False(t, s.state.IsHandComplete)
}

func TestNextHandRejectedWhileInProgress(t *testing.T) {
	s, hub := newSession(t, 1, nil)
	s.handle(event{kind: evStart})
	s.handle(playerEvent(t, websocket.EventNextHand, nil))

	msg, ok := hub.last(human, websocket.EventActionRejected)
	require.True(t, ok)
	assert.Equal(t, errHandInProgress.Error(), msg.Data.(map[string]any)["error"])
	assert.Equal(t, 1, s.state.HandNumber)
}

func TestLedgerFailureThenRetry(t *testing.T) {
	res := newFakeResolver()
	s, hub := newSession(t, 0, res)
	s.handle(event{kind: evStart})
	playOut(t, s)

	req := <-res.reqs
	assert.Equal(t, s.state.HandNumber, req.HandNumber)
	assert.Len(t, req.Hands, 3)
	assert.False(t, s.state.Resolved)

	// 结算未完成不能开下一手
	s.handle(playerEvent(t, websocket.EventNextHand, nil))
	msg, _ := hub.last(human, websocket.EventActionRejected)
	assert.Equal(t, errNotResolved.Error(), msg.Data.(map[string]any)["error"])

	// 请求进行中不能重试
	s.handle(playerEvent(t, websocket.EventRetryShowdown, nil))
	assert.Equal(t, 2, hub.count(human, websocket.EventActionRejected))

	res.replies <- reply{err: errors.New("rpc down")}
	s.handle(awaitResolved(t, s))
	failed, ok := hub.last(human, websocket.EventShowdownFailed)
	require.True(t, ok)
	assert.Equal(t, "rpc down", failed.Data.(map[string]any)["error"])
	assert.False(t, s.state.Resolved)

	// 重试成功
	s.handle(playerEvent(t, websocket.EventRetryShowdown, nil))
	<-res.reqs
	want, w := potTo(s.state)
	res.replies <- reply{res: want}
	s.handle(awaitResolved(t, s))

	assert.True(t, s.state.Resolved)
	assert.Equal(t, []int{s.state.Players[w].ID}, s.state.Winners)
	for i, p := range s.state.Players {
		assert.Equal(t, want.Balances[i], p.Balance)
	}
	out, ok := hub.last(human, websocket.EventShowdownResult)
	require.True(t, ok)
	assert.Equal(t, "ledger", out.Data.(map[string]any)["source"])

	s.handle(playerEvent(t, websocket.EventNextHand, nil))
	assert.Equal(t, 2, s.state.HandNumber)
}

// 本地先结算，账本结果晚到仍然覆盖
func TestLateLedgerResultOverridesLocal(t *testing.T) {
	res := newFakeResolver()
	s, hub := newSession(t, 0, res)
	s.handle(event{kind: evStart})
	playOut(t, s)
	<-res.reqs

	want, w := potTo(s.state)
	s.handle(playerEvent(t, websocket.EventResolveLocal, nil))
	require.True(t, s.state.Resolved)
	local, _ := hub.last(human, websocket.EventShowdownResult)
	assert.Equal(t, "local", local.Data.(map[string]any)["source"])

	// 已结算后不能再本地结算
	s.handle(playerEvent(t, websocket.EventResolveLocal, nil))
	assert.Equal(t, 1, hub.count(human, websocket.EventActionRejected))

	// 账本判给第一个未弃牌的座位，余额以账本为准
	res.replies <- reply{res: want}
	s.handle(awaitResolved(t, s))

	assert.Equal(t, []int{s.state.Players[w].ID}, s.state.Winners)
	for i, p := range s.state.Players {
		assert.Equal(t, want.Balances[i], p.Balance)
	}
	assert.Equal(t, 2, hub.count(human, websocket.EventShowdownResult))
}

func TestLedgerResultForOldHandDropped(t *testing.T) {
	s, _ := newSession(t, 0, nil)
	s.handle(event{kind: evStart})
	before := s.state

	s.handle(event{kind: evResolved, hand: 99, result: engine.ShowdownResult{Balances: []int64{1, 2, 3}}})
	assert.Same(t, before, s.state)
}

func TestMalformedLedgerResultRejected(t *testing.T) {
	res := newFakeResolver()
	s, hub := newSession(t, 0, res)
	s.handle(event{kind: evStart})
	playOut(t, s)
	<-res.reqs

	res.replies <- reply{res: engine.ShowdownResult{Balances: []int64{1}, WinnerIndex: 0}}
	s.handle(awaitResolved(t, s))
	assert.False(t, s.state.Resolved)
	_, ok := hub.last(human, websocket.EventShowdownFailed)
	assert.True(t, ok)

	// 仍可本地结算
	s.handle(playerEvent(t, websocket.EventResolveLocal, nil))
	assert.True(t, s.state.Resolved)
}

func TestStateViewHidesBotCards(t *testing.T) {
	s, hub := newSession(t, 0, nil)
	s.handle(event{kind: evStart})

	msg, ok := hub.last(human, websocket.EventState)
	require.True(t, ok)
	v, ok := msg.Data.(View)
	require.True(t, ok)

	assert.Equal(t, "t-1", v.SessionID)
	assert.Equal(t, 0, v.YourIndex)
	assert.Len(t, v.Players[0].Hand, 2)
	assert.Nil(t, v.Players[1].Hand)
	assert.Nil(t, v.Players[2].Hand)
	assert.Empty(t, v.CommunityCards, "preflop shows no board")
	require.NotNil(t, v.YourHand)

	// 推送的是副本，真实状态不受影响
	assert.Len(t, s.state.Players[1].Hand, 2)

	// 摊牌后未弃牌的牌亮出
	playOut(t, s)
	msg, _ = hub.last(human, websocket.EventState)
	v = msg.Data.(View)
	for i, p := range v.Players {
		if !p.Folded && p.InGame {
			assert.Len(t, p.Hand, 2, "seat %d revealed", i)
		} else if i != 0 {
			assert.Nil(t, p.Hand, "seat %d folded stays hidden", i)
		}
	}
	assert.Len(t, v.CommunityCards, len(s.state.VisibleCommunity()))
}

func TestGetState(t *testing.T) {
	s, hub := newSession(t, 0, nil)
	s.handle(event{kind: evStart})
	n := hub.count(human, websocket.EventState)
	_, v0 := s.State()

	s.handle(playerEvent(t, websocket.EventGetState, nil))
	assert.Equal(t, n+1, hub.count(human, websocket.EventState))
	_, v1 := s.State()
	assert.Equal(t, v0, v1, "get_state only resends")
}

func TestTournamentOver(t *testing.T) {
	initial, err := engine.CreateInitialGameState(engine.Setup{
		BotCount: 2, Mode: table.ModeNormal, Balances: []int64{3000, 0, 0},
		Addresses: []string{human, "", ""},
	})
	require.NoError(t, err)
	hub := newMockHub()
	s := NewSession("t-9", human, initial, hub, nil, Options{Clock: quartz.NewMock(t), Seed: 1})
	ended := make(chan struct{})
	s.onOver = func() { close(ended) }

	s.handle(event{kind: evStart})
	assert.True(t, s.over)
	msg, ok := hub.last(human, websocket.EventTournamentOver)
	require.True(t, ok)
	data := msg.Data.(map[string]any)
	assert.Equal(t, 0, data["winner"])
	assert.Equal(t, human, data["winnerAddress"])
	assert.Equal(t, "local", data["source"])

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("onOver not called")
	}

	s.handle(playerEvent(t, websocket.EventNextHand, nil))
	msg, _ := hub.last(human, websocket.EventActionRejected)
	assert.Equal(t, errTournamentOver.Error(), msg.Data.(map[string]any)["error"])
}

// 本地结算后开了下一手，上一手的账本结果晚到被丢弃，下一手照常提交账本
func TestStaleLedgerResultDoesNotBlockNextShowdown(t *testing.T) {
	res := newFakeResolver()
	s, _ := newSession(t, 0, res)
	s.handle(event{kind: evStart})
	playOut(t, s)
	first := <-res.reqs

	s.handle(playerEvent(t, websocket.EventResolveLocal, nil))
	s.handle(playerEvent(t, websocket.EventNextHand, nil))
	require.Equal(t, first.HandNumber+1, s.state.HandNumber)

	want, _ := potTo(s.state)
	res.replies <- reply{res: want}
	ev := awaitResolved(t, s)
	require.Equal(t, first.HandNumber, ev.hand)
	s.handle(ev)
	assert.False(t, s.resolving)

	playOut(t, s)
	select {
	case req := <-res.reqs:
		assert.Equal(t, s.state.HandNumber, req.HandNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("next showdown never submitted to the ledger")
	}
	assert.True(t, s.inFlight())

	next, w := potTo(s.state)
	res.replies <- reply{res: next}
	s.handle(awaitResolved(t, s))
	assert.True(t, s.state.Resolved)
	assert.Equal(t, []int{s.state.Players[w].ID}, s.state.Winners)
}

// 上一手的请求还在途中时，新一手的摊牌不等它
func TestNewShowdownNotBlockedByOldRequest(t *testing.T) {
	res := newFakeResolver()
	s, _ := newSession(t, 0, res)
	s.handle(event{kind: evStart})
	playOut(t, s)
	<-res.reqs

	s.handle(playerEvent(t, websocket.EventResolveLocal, nil))
	s.handle(playerEvent(t, websocket.EventNextHand, nil))
	assert.False(t, s.inFlight())

	playOut(t, s)
	select {
	case req := <-res.reqs:
		assert.Equal(t, s.state.HandNumber, req.HandNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("second hand never submitted")
	}
}

// standingsResolver 账本同时提供冠军与淘汰记录
type standingsResolver struct {
	*fakeResolver
	winner string
	elim   engine.Elimination
}

func (r *standingsResolver) TournamentWinner(ctx context.Context) (bool, string, error) {
	return true, r.winner, nil
}

func (r *standingsResolver) Elimination(ctx context.Context, address string) (engine.Elimination, bool, error) {
	if address != human {
		return engine.Elimination{}, false, nil
	}
	return r.elim, true, nil
}

func TestTournamentOverReadsLedgerStandings(t *testing.T) {
	initial, err := engine.CreateInitialGameState(engine.Setup{
		BotCount: 2, Mode: table.ModeNormal, Balances: []int64{0, 3000, 0},
		Addresses: []string{human, "", ""},
	})
	require.NoError(t, err)
	hub := newMockHub()
	res := &standingsResolver{
		fakeResolver: newFakeResolver(),
		winner:       "0x00000000000000000000000000000000000000B1",
		elim:         engine.Elimination{PlayerID: -1, Chair: 0, Address: human, PlayerHand: table.MustParseCards("♠K♥K")},
	}
	s := NewSession("t-9", human, initial, hub, res, Options{Clock: quartz.NewMock(t), Seed: 1})
	ended := make(chan struct{})
	s.onOver = func() { close(ended) }

	s.handle(event{kind: evStart})
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("onOver not called")
	}

	msg, ok := hub.last(human, websocket.EventTournamentOver)
	require.True(t, ok)
	data := msg.Data.(map[string]any)
	assert.Equal(t, "ledger", data["source"])
	assert.Equal(t, 1, data["winner"])
	assert.Equal(t, res.winner, data["winnerAddress"])
	assert.Equal(t, res.elim, data["yourElimination"])
}
