// 下注状态机：每次转换都在副本上进行，调用方负责串行化
package engine

import (
	"fmt"

	"CoolerPoker/internal/game/dealer"
	"CoolerPoker/internal/game/table"
)

// ---------------------
//       ENGINE
// ---------------------

type Engine struct {
	Dealer *dealer.Dealer
}

func NewEngine(d *dealer.Dealer) *Engine {
	return &Engine{Dealer: d}
}

// StartNewHand 重置单手字段、轮转庄位、发底牌、下盲注
func (e *Engine) StartNewHand(s *GameState) (*GameState, error) {
	if IsTournamentOver(s) {
		return nil, ErrNotEnoughPlayers
	}
	ns := s.Clone()
	n := len(ns.Players)

	ns.HandNumber++
	ns.CurrentRound = Preflop
	ns.Pot = 0
	ns.CurrentBet = 0
	ns.IsHandComplete = false
	ns.Resolved = false
	ns.Winners = []int{}
	ns.CommunityCards = []table.Card{}

	// 没筹码的座位本手坐出
	for i := range ns.Players {
		p := &ns.Players[i]
		p.Hand = nil
		p.CurrentBet = 0
		p.TotalBet = 0
		p.IsAllIn = false
		p.InGame = p.Balance > 0
		p.Folded = !p.InGame
	}

	ns.DealerPosition = nextSeat(ns, ns.DealerPosition, func(p *Player) bool { return p.InGame })

	isFirstHand := !ns.FirstHandPlayed
	ns.FirstHandPlayed = true
	botCount := n - 1
	if sc := e.Dealer.DealModeSpecific(ns.GameMode, isFirstHand, botCount); sc != nil {
		bot := 0
		for i := range ns.Players {
			p := &ns.Players[i]
			hand := sc.PlayerHand
			if !p.IsHuman {
				hand = sc.BotHands[bot]
				bot++
			}
			if p.InGame {
				p.Hand = hand
			}
		}
		ns.CommunityCards = sc.CommunityCards
		ns.Deck = sc.Remaining
	} else {
		var seated []int
		for i := range ns.Players {
			if ns.Players[i].InGame {
				seated = append(seated, i)
			}
		}
		hands, rest := dealer.DealPlayerCards(e.Dealer.ShuffledDeck(), len(seated), 2)
		for k, i := range seated {
			ns.Players[i].Hand = hands[k]
		}
		ns.Deck = rest
	}

	// 庄位后两个有筹码的座位下盲注，不够则全下
	inGame := func(p *Player) bool { return p.InGame }
	sbIdx := nextSeat(ns, ns.DealerPosition, inGame)
	bbIdx := nextSeat(ns, sbIdx, inGame)
	sbPaid := ns.pay(sbIdx, ns.SmallBlind)
	bbPaid := ns.pay(bbIdx, ns.BigBlind)
	ns.CurrentBet = max(sbPaid, bbPaid)

	ns.PlayersToActInRound = ns.countCanAct()

	ns.CurrentTurnIndex = (bbIdx + 1) % n
	if next := nextActiveFrom(ns, bbIdx); next >= 0 {
		ns.CurrentTurnIndex = next
	}

	// 盲注后已无人需要行动（都全下了），直接发完公共牌
	if ns.countCanAct() == 0 || (ns.countCanAct() == 1 && ns.Players[ns.CurrentTurnIndex].CurrentBet >= ns.CurrentBet) {
		for !ns.IsHandComplete {
			ns = AdvanceToNextRound(ns)
		}
	}
	return ns, nil
}

// ProcessPlayerAction 处理一个座位的一次行动；出错时调用方保留原状态
func ProcessPlayerAction(s *GameState, playerIndex int, action Action, raiseAmount int64) (*GameState, error) {
	if playerIndex < 0 || playerIndex >= len(s.Players) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPlayer, playerIndex)
	}
	if s.IsHandComplete || s.CurrentRound == Showdown {
		return nil, ErrHandComplete
	}

	ns := s.Clone()
	p := &ns.Players[playerIndex]
	if !p.CanAct() {
		return ns, nil
	}

	owed := ns.CurrentBet - p.CurrentBet

	switch action {
	case Fold:
		p.Folded = true
		p.InGame = false
		ns.PlayersToActInRound--

	case Check:
		if owed > 0 {
			return nil, fmt.Errorf("%w: cannot check facing a bet of %d", ErrInvalidAction, owed)
		}
		ns.PlayersToActInRound--

	case Call:
		if owed > 0 {
			ns.pay(playerIndex, owed)
		}
		ns.PlayersToActInRound--

	case Raise:
		if raiseAmount <= ns.CurrentBet {
			return nil, fmt.Errorf("%w: %d must exceed current bet %d", ErrInvalidRaise, raiseAmount, ns.CurrentBet)
		}
		ns.pay(playerIndex, raiseAmount-p.CurrentBet)
		if p.CurrentBet > ns.CurrentBet {
			ns.CurrentBet = p.CurrentBet
			// 重新打开行动：仍低于新注额且未全下的玩家
			ns.PlayersToActInRound = 0
			for i := range ns.Players {
				q := &ns.Players[i]
				if q.CanAct() && q.CurrentBet < ns.CurrentBet {
					ns.PlayersToActInRound++
				}
			}
		} else {
			// 全下不足以超过当前注额，等同跟注
			ns.PlayersToActInRound--
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	return ns, nil
}

// IsBettingRoundComplete 剩一人未弃牌，或行动计数归零
func IsBettingRoundComplete(s *GameState) bool {
	if s.countNotFolded() <= 1 {
		return true
	}
	return s.PlayersToActInRound <= 0
}

// GetNextActivePlayerIndex 从当前座位往后找能行动的人，没有返回 -1
func GetNextActivePlayerIndex(s *GameState) int {
	return nextActiveFrom(s, s.CurrentTurnIndex)
}

// AdvanceToNextRound 发下一街公共牌（已有则不发），清零本轮下注。
// 河牌之后进入摊牌，只标记结束，不分配底池。
func AdvanceToNextRound(s *GameState) *GameState {
	ns := s.Clone()
	if ns.CurrentRound == Showdown {
		return ns
	}

	if ns.countNotFolded() <= 1 {
		ns.toShowdown()
		return ns
	}

	switch ns.CurrentRound {
	case Preflop:
		ns.CurrentRound = Flop
		ns.dealCommunityTo(3)
	case Flop:
		ns.CurrentRound = Turn
		ns.dealCommunityTo(4)
	case Turn:
		ns.CurrentRound = River
		ns.dealCommunityTo(5)
	case River:
		ns.toShowdown()
		return ns
	}

	ns.CurrentBet = 0
	for i := range ns.Players {
		ns.Players[i].CurrentBet = 0
	}
	ns.PlayersToActInRound = ns.countCanAct()

	ns.CurrentTurnIndex = (ns.DealerPosition + 1) % len(ns.Players)
	if next := nextActiveFrom(ns, ns.DealerPosition); next >= 0 {
		ns.CurrentTurnIndex = next
	}
	return ns
}

// ProgressTurn 一次行动之后推进：轮次结束则进入下一轮，否则轮到下一个人。
// 能下注的人不足两个时直接把公共牌发完进入摊牌。
func ProgressTurn(s *GameState) *GameState {
	if s.IsHandComplete || s.CurrentRound == Showdown {
		return s.Clone()
	}

	if !IsBettingRoundComplete(s) {
		if next := GetNextActivePlayerIndex(s); next >= 0 {
			ns := s.Clone()
			ns.CurrentTurnIndex = next
			return ns
		}
	}

	ns := AdvanceToNextRound(s)
	for !ns.IsHandComplete && ns.countCanAct() < 2 {
		ns = AdvanceToNextRound(ns)
	}
	return ns
}

// ---------------------
//      HELPERS
// ---------------------

// pay 从余额扣除最多 amount，返回实际支付
func (s *GameState) pay(idx int, amount int64) int64 {
	p := &s.Players[idx]
	paid := min(amount, p.Balance)
	p.Balance -= paid
	p.CurrentBet += paid
	p.TotalBet += paid
	s.Pot += paid
	if p.Balance == 0 {
		p.IsAllIn = true
	}
	return paid
}

func (s *GameState) dealCommunityTo(n int) {
	if need := n - len(s.CommunityCards); need > 0 {
		cards, rest := dealer.DealCommunity(s.Deck, need)
		s.CommunityCards = append(s.CommunityCards, cards...)
		s.Deck = rest
	}
}

func (s *GameState) toShowdown() {
	s.CurrentRound = Showdown
	s.IsHandComplete = true
	s.PlayersToActInRound = 0
}

// nextSeat 从 start 之后循环查找满足条件的座位（可能绕回 start 自己）
func nextSeat(s *GameState, start int, ok func(*Player) bool) int {
	n := len(s.Players)
	idx := start
	for i := 0; i < n; i++ {
		idx = (idx + 1) % n
		if ok(&s.Players[idx]) {
			return idx
		}
	}
	return -1
}

func nextActiveFrom(s *GameState, start int) int {
	return nextSeat(s, start, (*Player).CanAct)
}
