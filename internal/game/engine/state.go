package engine

import (
	"errors"
	"fmt"
	"slices"

	"CoolerPoker/internal/game/table"
)

// ---------------------
//      ERRORS
// ---------------------

var (
	ErrInvalidAction         = errors.New("invalid action")
	ErrInvalidRaise          = errors.New("invalid raise amount")
	ErrInvalidPlayer         = errors.New("invalid player index")
	ErrHandComplete          = errors.New("hand is complete")
	ErrNotEnoughPlayers      = errors.New("not enough players with chips")
	ErrInvalidSetup          = errors.New("invalid game setup")
	ErrInvalidShowdownResult = errors.New("invalid showdown result")
)

// ---------------------
//      ROUNDS
// ---------------------

type Round string

const (
	Preflop  Round = "preflop"
	Flop     Round = "flop"
	Turn     Round = "turn"
	River    Round = "river"
	Showdown Round = "showdown"
)

type Action string

const (
	Fold  Action = "fold"
	Check Action = "check"
	Call  Action = "call"
	Raise Action = "raise"
)

// ---------------------
//      STATE
// ---------------------

// Player 座位信息；ID 在整个会话内不变，Chair 固定座位
type Player struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	IsHuman    bool         `json:"isHuman"`
	Chair      int          `json:"chair"`
	Address    string       `json:"address,omitempty"`
	Balance    int64        `json:"balance"`
	CurrentBet int64        `json:"currentBet"`
	TotalBet   int64        `json:"totalBet"`
	InGame     bool         `json:"inGame"`
	IsAllIn    bool         `json:"isAllIn"`
	Folded     bool         `json:"folded"`
	Hand       []table.Card `json:"hand"`
}

// CanAct 本轮还能下注的座位
func (p *Player) CanAct() bool {
	return !p.Folded && p.InGame && !p.IsAllIn
}

type GameState struct {
	Players        []Player     `json:"players"`
	CommunityCards []table.Card `json:"communityCards"`
	Deck           table.Deck   `json:"-"`
	CurrentRound   Round        `json:"currentRound"`
	Pot            int64        `json:"pot"`
	CurrentBet     int64        `json:"currentBet"`
	SmallBlind     int64        `json:"smallBlind"`
	BigBlind       int64        `json:"bigBlind"`
	DealerPosition int          `json:"dealerPosition"`
	// 当前行动座位（Players 下标）
	CurrentTurnIndex    int            `json:"currentTurnIndex"`
	HandNumber          int            `json:"handNumber"`
	GameMode            table.GameMode `json:"gameMode"`
	FirstHandPlayed     bool           `json:"firstHandPlayed"`
	IsHandComplete      bool           `json:"isHandComplete"`
	Resolved            bool           `json:"resolved"`
	Winners             []int          `json:"winners"`
	PlayersToActInRound int            `json:"playersToActInRound"`

	// 锦标赛进度：淘汰记录按发生顺序，冠军为玩家 ID
	Eliminations       []Elimination `json:"eliminations"`
	TournamentFinished bool          `json:"tournamentFinished"`
	TournamentWinner   int           `json:"tournamentWinner"`
}

// Clone 深拷贝，所有状态转换都在副本上进行
func (s *GameState) Clone() *GameState {
	ns := *s
	ns.Players = slices.Clone(s.Players)
	for i := range ns.Players {
		ns.Players[i].Hand = slices.Clone(ns.Players[i].Hand)
	}
	ns.CommunityCards = slices.Clone(s.CommunityCards)
	ns.Deck = slices.Clone(s.Deck)
	ns.Winners = slices.Clone(s.Winners)
	ns.Eliminations = slices.Clone(s.Eliminations)
	return &ns
}

// PlayerByID 找不到返回 -1
func (s *GameState) PlayerByID(id int) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// HumanIndex 人类玩家所在下标
func (s *GameState) HumanIndex() int {
	for i := range s.Players {
		if s.Players[i].IsHuman {
			return i
		}
	}
	return -1
}

// VisibleCommunity 固定牌局会提前放好五张公共牌，按当前轮次只露出应有的张数
func (s *GameState) VisibleCommunity() []table.Card {
	n := 0
	switch s.CurrentRound {
	case Flop:
		n = 3
	case Turn:
		n = 4
	case River, Showdown:
		n = 5
	}
	if n > len(s.CommunityCards) {
		n = len(s.CommunityCards)
	}
	return append([]table.Card(nil), s.CommunityCards[:n]...)
}

func (s *GameState) countCanAct() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].CanAct() {
			n++
		}
	}
	return n
}

func (s *GameState) countNotFolded() int {
	n := 0
	for i := range s.Players {
		if !s.Players[i].Folded {
			n++
		}
	}
	return n
}

// ---------------------
//      SETUP
// ---------------------

// Setup 建局参数；Balances/Addresses 按座位给出，可来自账本名单
type Setup struct {
	HumanName       string
	BotCount        int
	HumanChair      int
	Mode            table.GameMode
	SmallBlind      int64
	BigBlind        int64
	StartingBalance int64
	Balances        []int64
	Addresses       []string
}

const (
	DefaultSmallBlind      = 10
	DefaultBigBlind        = 20
	DefaultStartingBalance = 1000
)

// CreateInitialGameState 每个会话调用一次。人类 ID 为 0，机器人按座位顺序 1..N
func CreateInitialGameState(setup Setup) (*GameState, error) {
	seats := setup.BotCount + 1
	switch {
	case setup.BotCount < 2:
		return nil, fmt.Errorf("%w: need at least 2 bots, got %d", ErrInvalidSetup, setup.BotCount)
	case setup.HumanChair < 0 || setup.HumanChair >= seats:
		return nil, fmt.Errorf("%w: human chair %d out of range", ErrInvalidSetup, setup.HumanChair)
	case !setup.Mode.Valid():
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidSetup, setup.Mode)
	case len(setup.Balances) != 0 && len(setup.Balances) != seats:
		return nil, fmt.Errorf("%w: %d balances for %d seats", ErrInvalidSetup, len(setup.Balances), seats)
	case len(setup.Addresses) != 0 && len(setup.Addresses) != seats:
		return nil, fmt.Errorf("%w: %d addresses for %d seats", ErrInvalidSetup, len(setup.Addresses), seats)
	}

	sb, bb := setup.SmallBlind, setup.BigBlind
	if sb <= 0 {
		sb = DefaultSmallBlind
	}
	if bb <= 0 {
		bb = DefaultBigBlind
	}
	start := setup.StartingBalance
	if start <= 0 {
		start = DefaultStartingBalance
	}
	name := setup.HumanName
	if name == "" {
		name = "You"
	}

	players := make([]Player, seats)
	botID := 1
	for chair := 0; chair < seats; chair++ {
		p := Player{Chair: chair, Balance: start, InGame: true}
		if chair == setup.HumanChair {
			p.ID, p.Name, p.IsHuman = 0, name, true
		} else {
			p.ID, p.Name = botID, fmt.Sprintf("Bot %d", botID)
			botID++
		}
		if len(setup.Balances) > 0 {
			if setup.Balances[chair] < 0 {
				return nil, fmt.Errorf("%w: negative balance at chair %d", ErrInvalidSetup, chair)
			}
			p.Balance = setup.Balances[chair]
		}
		if len(setup.Addresses) > 0 {
			p.Address = setup.Addresses[chair]
		}
		players[chair] = p
	}

	s := &GameState{
		Players:        players,
		CommunityCards: []table.Card{},
		CurrentRound:   Preflop,
		SmallBlind:     sb,
		BigBlind:       bb,
		GameMode:       setup.Mode,
		Winners:        []int{},
		Eliminations:   []Elimination{},
	}
	s.updateTournament()
	return s, nil
}

// IsTournamentOver 少于两个座位还有筹码
func IsTournamentOver(s *GameState) bool {
	return s.countFunded() < 2
}
