package manager

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"CoolerPoker/internal/game/bot"
	"CoolerPoker/internal/game/dealer"
	"CoolerPoker/internal/game/engine"
	"CoolerPoker/internal/utils"
	"CoolerPoker/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Resolver 摊牌结算（账本）；实现方可能很慢
type Resolver interface {
	Resolve(ctx context.Context, req engine.ShowdownRequest) (engine.ShowdownResult, error)
}

// Standings 账本侧的冠军与淘汰记录。Resolver 同时实现它时，锦标赛结束会读一次
type Standings interface {
	TournamentWinner(ctx context.Context) (finished bool, address string, err error)
	Elimination(ctx context.Context, address string) (engine.Elimination, bool, error)
}

type Options struct {
	BotDelay       time.Duration
	ResolveTimeout time.Duration
	Seed           int64
	Clock          quartz.Clock
}

func (o Options) withDefaults() Options {
	if o.BotDelay <= 0 {
		o.BotDelay = 1500 * time.Millisecond
	}
	if o.ResolveTimeout <= 0 {
		o.ResolveTimeout = 2 * time.Minute
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	return o
}

var (
	errNotYourTurn     = errors.New("not your turn")
	errHandInProgress  = errors.New("hand still in progress")
	errNotResolved     = errors.New("showdown not resolved yet")
	errNothingToSettle = errors.New("no showdown awaiting resolution")
	errTournamentOver  = errors.New("tournament is over")
)

// ---------------------
//   EVENT DEFINITION
// ---------------------

type eventKind int

const (
	evStart eventKind = iota
	evPlayer
	evBotTurn
	evResolved
)

type event struct {
	kind   eventKind
	msg    websocket.IncomingMessage
	hand   int
	seq    int
	result engine.ShowdownResult
	err    error
}

// ActionPayload player_action 的 data
type ActionPayload struct {
	Action engine.Action `json:"action"`
	Amount int64         `json:"amount,omitempty"`
}

// ---------------------
//       SESSION
// ---------------------

// Session 一场锦标赛的运行时。state 只由 run 协程读写，
// 外部只能通过事件通道影响它，保证同一时刻只处理一个行动。
type Session struct {
	ID      string
	Address string // 人类玩家钱包地址

	hub      websocket.HubInterface
	eng      *engine.Engine
	resolver Resolver
	opts     Options
	rnd      *rand.Rand
	log      *log.Logger

	events   chan event
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// run 协程独占
	state         *engine.GameState
	turnSeq       int
	resolving     bool
	resolvingHand int
	over          bool

	// 锦标赛结束后在独立协程里调用一次
	onOver func()

	mu      sync.RWMutex
	snap    *engine.GameState
	version uint64
}

func NewSession(id, address string, initial *engine.GameState, hub websocket.HubInterface, resolver Resolver, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		ID:       id,
		Address:  address,
		hub:      hub,
		eng:      engine.NewEngine(dealer.NewDealer(opts.Seed)),
		resolver: resolver,
		opts:     opts,
		rnd:      rand.New(rand.NewSource(opts.Seed + 1)),
		log:      utils.Log.WithPrefix("session").With("id", id),
		events:   make(chan event, 64), // 防止死锁
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		state:    initial,
		snap:     initial.Clone(),
	}
}

// Start 启动事件循环并开第一手
func (s *Session) Start() {
	go s.run()
	s.post(event{kind: evStart})
}

func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}

// Enqueue 玩家消息入口（GameManager 调用）；不阻塞 hub 协程
func (s *Session) Enqueue(msg websocket.IncomingMessage) {
	select {
	case s.events <- event{kind: evPlayer, msg: msg}:
	case <-s.quit:
	default:
		s.log.Warn("event queue full, dropping player message", "event", msg.Event)
	}
}

// State 最近一次推送的状态快照与版本号
func (s *Session) State() (*engine.GameState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), s.version
}

func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-s.quit:
			return
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evStart:
		s.startHand()
	case evPlayer:
		s.handlePlayer(ev.msg)
	case evBotTurn:
		s.handleBotTurn(ev.hand, ev.seq)
	case evResolved:
		s.handleResolved(ev)
	}
}

func (s *Session) handlePlayer(msg websocket.IncomingMessage) {
	switch msg.Event {
	case websocket.EventPlayerAction:
		var p ActionPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			s.reject(msg.Event, err)
			return
		}
		s.humanAction(p)

	case websocket.EventNextHand:
		switch {
		case !s.state.IsHandComplete && s.state.HandNumber > 0:
			s.reject(msg.Event, errHandInProgress)
		case !s.state.Resolved && s.state.HandNumber > 0:
			s.reject(msg.Event, errNotResolved)
		default:
			s.startHand()
		}

	case websocket.EventRetryShowdown:
		if !s.awaitingResolution() || s.inFlight() || s.resolver == nil {
			s.reject(msg.Event, errNothingToSettle)
			return
		}
		s.resolve()

	case websocket.EventResolveLocal:
		if !s.awaitingResolution() {
			s.reject(msg.Event, errNothingToSettle)
			return
		}
		s.settleLocally()
		s.publish()

	case websocket.EventGetState:
		s.sendState()

	default:
		s.log.Debug("ignoring message", "event", msg.Event)
	}
}

func (s *Session) awaitingResolution() bool {
	return s.state.IsHandComplete && !s.state.Resolved && s.state.HandNumber > 0
}

// inFlight 只看当前这一手；上一手遗留的账本请求不挡住新的结算
func (s *Session) inFlight() bool {
	return s.resolving && s.resolvingHand == s.state.HandNumber
}

func (s *Session) startHand() {
	if s.over {
		s.reject(websocket.EventNextHand, errTournamentOver)
		return
	}
	ns, err := s.eng.StartNewHand(s.state)
	if errors.Is(err, engine.ErrNotEnoughPlayers) {
		s.finish()
		return
	}
	if err != nil {
		s.log.Error("start hand failed", "err", err)
		return
	}
	s.state = ns
	s.log.Info("hand started", "hand", ns.HandNumber, "dealer", ns.DealerPosition)
	s.afterTransition()
}

func (s *Session) humanAction(p ActionPayload) {
	idx := s.state.HumanIndex()
	if s.state.IsHandComplete || s.state.HandNumber == 0 {
		s.reject(websocket.EventPlayerAction, engine.ErrHandComplete)
		return
	}
	if idx < 0 || s.state.CurrentTurnIndex != idx {
		s.reject(websocket.EventPlayerAction, errNotYourTurn)
		return
	}

	ns, err := engine.ProcessPlayerAction(s.state, idx, p.Action, p.Amount)
	if err != nil {
		s.reject(websocket.EventPlayerAction, err)
		return
	}
	s.log.Debug("human acted", "action", p.Action, "amount", p.Amount)
	s.state = engine.ProgressTurn(ns)
	s.afterTransition()
}

func (s *Session) handleBotTurn(hand, seq int) {
	// 过期的定时器事件直接丢弃，保证同一回合不会被处理两次
	if hand != s.state.HandNumber || seq != s.turnSeq || s.state.IsHandComplete {
		s.log.Debug("stale bot turn dropped", "hand", hand, "seq", seq)
		return
	}
	idx := s.state.CurrentTurnIndex
	p := s.state.Players[idx]
	if p.IsHuman || !p.CanAct() {
		return
	}

	d := bot.Decide(s.rnd, bot.Input{
		Hand:           p.Hand,
		CommunityCards: s.state.VisibleCommunity(),
		CurrentBet:     s.state.CurrentBet,
		BotCurrentBet:  p.CurrentBet,
		BotBalance:     p.Balance,
	})

	ns, err := engine.ProcessPlayerAction(s.state, idx, engine.Action(d.Action), d.RaiseAmount)
	if err != nil {
		s.log.Warn("bot decision rejected, folding", "bot", p.Name, "err", err)
		ns, err = engine.ProcessPlayerAction(s.state, idx, engine.Fold, 0)
		if err != nil {
			s.log.Error("bot fold failed", "bot", p.Name, "err", err)
			return
		}
	}
	s.log.Debug("bot acted", "bot", p.Name, "action", d.Action, "amount", d.RaiseAmount)
	s.state = engine.ProgressTurn(ns)
	s.afterTransition()
}

// afterTransition 每次状态变化后：推送、安排机器人、或者进入结算
func (s *Session) afterTransition() {
	s.turnSeq++

	if s.state.IsHandComplete {
		if !s.state.Resolved && !s.inFlight() {
			if s.resolver == nil {
				s.settleLocally()
			} else {
				s.resolve()
			}
		}
		s.publish()
		return
	}

	s.publish()

	idx := s.state.CurrentTurnIndex
	if s.state.Players[idx].IsHuman {
		s.send(websocket.EventYourTurn, map[string]any{
			"toCall":     s.state.CurrentBet - s.state.Players[idx].CurrentBet,
			"currentBet": s.state.CurrentBet,
			"balance":    s.state.Players[idx].Balance,
		})
		return
	}

	hand, seq := s.state.HandNumber, s.turnSeq
	s.opts.Clock.AfterFunc(s.opts.BotDelay, func() {
		s.post(event{kind: evBotTurn, hand: hand, seq: seq})
	})
}

func (s *Session) settleLocally() {
	s.state = engine.DetermineWinners(s.state, false)
	s.log.Info("showdown resolved locally", "hand", s.state.HandNumber, "winners", s.state.Winners)
	s.send(websocket.EventShowdownResult, s.showdownPayload("local"))
}

// resolve 异步调用账本，结果回到事件循环
func (s *Session) resolve() {
	req := engine.NewShowdownRequest(s.state)
	hand := s.state.HandNumber
	s.resolving, s.resolvingHand = true, hand
	timeout := s.opts.ResolveTimeout

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := s.resolver.Resolve(ctx, req)
		s.post(event{kind: evResolved, hand: hand, result: res, err: err})
	}()
}

func (s *Session) handleResolved(ev event) {
	if ev.hand == s.resolvingHand {
		s.resolving = false
	}
	if ev.hand != s.state.HandNumber {
		s.log.Warn("ledger result for old hand dropped", "hand", ev.hand, "current", s.state.HandNumber)
		return
	}

	if ev.err != nil {
		s.log.Error("ledger resolution failed", "hand", ev.hand, "err", ev.err)
		s.send(websocket.EventShowdownFailed, map[string]any{
			"hand":  ev.hand,
			"error": ev.err.Error(),
		})
		return
	}

	// 账本结果优先，即使本地已经结算过
	ns, err := engine.ApplyShowdownResult(s.state, ev.result)
	if err != nil {
		s.log.Error("ledger result rejected", "hand", ev.hand, "err", err)
		s.send(websocket.EventShowdownFailed, map[string]any{
			"hand":  ev.hand,
			"error": err.Error(),
		})
		return
	}
	s.state = ns
	s.log.Info("showdown resolved by ledger", "hand", ns.HandNumber, "winners", ns.Winners)
	s.send(websocket.EventShowdownResult, s.showdownPayload("ledger"))
	s.publish()
}

// ---------------------
//   TOURNAMENT OVER
// ---------------------

// finish 发出 tournament_over；有账本时先读账本的冠军和淘汰记录
func (s *Session) finish() {
	s.over = true
	payload := s.tournamentOverPayload()
	s.log.Info("tournament over", "hands", s.state.HandNumber, "winner", payload["winner"])

	st, ok := s.resolver.(Standings)
	if !ok {
		s.send(websocket.EventTournamentOver, payload)
		s.ended()
		return
	}

	timeout := s.opts.ResolveTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.readStandings(ctx, st, payload)
		s.send(websocket.EventTournamentOver, payload)
		s.ended()
	}()
}

func (s *Session) tournamentOverPayload() map[string]any {
	winner := engine.TournamentWinner(s.state)
	out := map[string]any{
		"sessionId":    s.ID,
		"source":       "local",
		"players":      s.state.Players,
		"winner":       winner,
		"eliminations": s.state.Eliminations,
	}
	if idx := s.state.PlayerByID(winner); idx >= 0 {
		out["winnerAddress"] = s.state.Players[idx].Address
	}
	if h := s.state.HumanIndex(); h >= 0 {
		if e, ok := s.state.EliminationOf(s.state.Players[h].ID); ok {
			out["yourElimination"] = e
		}
	}
	return out
}

// readStandings 账本读失败时保留本地结果
func (s *Session) readStandings(ctx context.Context, st Standings, payload map[string]any) {
	finished, addr, err := st.TournamentWinner(ctx)
	if err != nil {
		s.log.Warn("ledger standings unavailable", "err", err)
		return
	}
	if finished {
		payload["source"] = "ledger"
		payload["winnerAddress"] = addr
	}
	if s.Address == "" {
		return
	}
	e, found, err := st.Elimination(ctx, s.Address)
	if err != nil {
		s.log.Warn("ledger elimination unavailable", "err", err)
		return
	}
	if found {
		payload["yourElimination"] = e
	}
}

func (s *Session) ended() {
	if s.onOver != nil {
		go s.onOver()
	}
}

// ---------------------
//       OUTPUT
// ---------------------

func (s *Session) publish() {
	s.mu.Lock()
	s.snap = s.state.Clone()
	s.version++
	s.mu.Unlock()
	s.sendState()
}

func (s *Session) sendState() {
	s.send(websocket.EventState, NewView(s.ID, s.state, s.state.HumanIndex()))
}

func (s *Session) showdownPayload(source string) map[string]any {
	return map[string]any{
		"hand":     s.state.HandNumber,
		"source":   source,
		"winners":  s.state.Winners,
		"hands":    revealedHands(s.state),
		"balances": balances(s.state),
	}
}

func (s *Session) reject(event string, err error) {
	s.log.Debug("rejected", "event", event, "err", err)
	s.send(websocket.EventActionRejected, map[string]any{
		"event": event,
		"error": err.Error(),
	})
}

func (s *Session) send(event string, data any) {
	if s.hub == nil || s.Address == "" {
		return
	}
	s.hub.SendToPlayer(s.Address, websocket.OutgoingMessage{Event: event, Data: data})
}
