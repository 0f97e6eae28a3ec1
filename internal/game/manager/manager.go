package manager

import (
	"fmt"
	"sync"

	"CoolerPoker/internal/game/engine"
	"CoolerPoker/internal/tournament"
	"CoolerPoker/internal/utils"
	"CoolerPoker/internal/websocket"
)

// ResolverFunc 按锦标赛挑选结算方式；返回 nil 表示本地结算
type ResolverFunc func(t *tournament.Tournament) Resolver

type Config struct {
	SmallBlind      int64
	BigBlind        int64
	StartingBalance int64
	Session         Options
	Resolver        ResolverFunc
	// 会话因锦标赛结束自行退出后调用（删除锦标赛记录）
	OnTournamentOver func(t *tournament.Tournament)
}

// GameManager 管理所有对局
type GameManager struct {
	mu              sync.RWMutex
	sessions        map[string]*Session // tournamentID → session
	playerToSession map[string]string   // player address → tournamentID
	hub             websocket.HubInterface
	cfg             Config
}

func NewGameManager(hub websocket.HubInterface, cfg Config) *GameManager {
	return &GameManager{
		sessions:        make(map[string]*Session),
		playerToSession: make(map[string]string),
		hub:             hub,
		cfg:             cfg,
	}
}

// StartSession 建局并启动事件循环。
// 调用方（tournament.Service）已确认该玩家没有有效的锦标赛记录，
// 所以同一玩家残留的旧会话（记录过期或丢失）会被停止并取代。
func (m *GameManager) StartSession(t *tournament.Tournament) error {
	initial, err := engine.CreateInitialGameState(engine.Setup{
		BotCount:        t.BotCount,
		HumanChair:      t.HumanChair,
		Mode:            t.Mode,
		SmallBlind:      m.cfg.SmallBlind,
		BigBlind:        m.cfg.BigBlind,
		StartingBalance: m.cfg.StartingBalance,
		Balances:        t.Balances,
		Addresses:       t.Addresses,
	})
	if err != nil {
		return fmt.Errorf("tournament %s: %w", t.ID, err)
	}

	var resolver Resolver
	if m.cfg.Resolver != nil {
		resolver = m.cfg.Resolver(t)
	}

	m.mu.Lock()
	if _, ok := m.sessions[t.ID]; ok {
		m.mu.Unlock()
		return fmt.Errorf("session for tournament %s exists", t.ID)
	}
	var orphan *Session
	if other, ok := m.playerToSession[t.Address]; ok {
		orphan = m.sessions[other]
		delete(m.sessions, other)
	}

	s := NewSession(t.ID, t.Address, initial, m.hub, resolver, m.cfg.Session)
	s.onOver = func() { m.finishSession(t, s) }
	m.sessions[t.ID] = s
	// ⭐ 建立玩家地址 → 会话 ID 映射
	m.playerToSession[t.Address] = t.ID
	m.mu.Unlock()

	if orphan != nil {
		utils.Log.Warn("replacing orphaned session", "old", orphan.ID, "tournament", t.ID, "player", t.Address)
		orphan.Stop()
	}

	// hub 可能正在回调 HandlePlayerMessage，发送前必须释放锁
	utils.Log.Info("session started", "tournament", t.ID, "player", t.Address, "mode", t.Mode, "bots", t.BotCount, "ledger", resolver != nil)
	m.hub.SendToPlayer(t.Address, websocket.OutgoingMessage{
		Event: websocket.EventSessionStarted,
		Data:  map[string]any{"tournamentId": t.ID, "mode": t.Mode},
	})
	s.Start()
	return nil
}

// HandlePlayerMessage 统一入口（来自 Hub.OnIncoming）
func (m *GameManager) HandlePlayerMessage(msg websocket.IncomingMessage) {
	m.mu.RLock()
	s := m.sessions[m.playerToSession[msg.From]]
	m.mu.RUnlock()

	if s == nil {
		utils.Log.Debug("message from player without session", "from", msg.From, "event", msg.Event)
		return
	}
	s.Enqueue(msg)
}

func (m *GameManager) Session(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// StopSession 停止并移除；不存在时返回 false
func (m *GameManager) StopSession(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		m.remove(id, s)
	}
	m.mu.Unlock()

	if ok {
		s.Stop()
	}
	return ok
}

// finishSession 会话自己结束（锦标赛分出胜负）；已被停止或取代时什么都不做
func (m *GameManager) finishSession(t *tournament.Tournament, s *Session) {
	m.mu.Lock()
	cur, ok := m.sessions[t.ID]
	ok = ok && cur == s
	if ok {
		m.remove(t.ID, s)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Stop()
	utils.Log.Info("session finished", "tournament", t.ID, "player", t.Address)
	if m.cfg.OnTournamentOver != nil {
		m.cfg.OnTournamentOver(t)
	}
}

// remove 需持有写锁
func (m *GameManager) remove(id string, s *Session) {
	delete(m.sessions, id)
	if m.playerToSession[s.Address] == id {
		delete(m.playerToSession, s.Address)
	}
}

func (m *GameManager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.playerToSession = make(map[string]string)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
