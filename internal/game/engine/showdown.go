package engine

import (
	"fmt"

	"CoolerPoker/internal/game/evaluator"
	"CoolerPoker/internal/game/table"
)

// TieSentinel 账本返回的 winner index 为该值时表示平局，赢家见 TiePlayers
const TieSentinel = 999999

// ShowdownRequest 交给账本结算的一手牌；所有切片按座位顺序
type ShowdownRequest struct {
	HandNumber int      `json:"handNumber"`
	Hands      []string `json:"hands"` // 弃牌/坐出的座位为空串
	Board      string   `json:"board"`
	Bets       []int64  `json:"bets"` // 本手累计投入
}

// ShowdownResult 账本确认后的结果；下标均为座位下标
type ShowdownResult struct {
	Balances    []int64 `json:"balances"`
	WinnerIndex int64   `json:"winnerIndex"`
	TiePlayers  []int64 `json:"tiePlayers"`
}

func NewShowdownRequest(s *GameState) ShowdownRequest {
	req := ShowdownRequest{
		HandNumber: s.HandNumber,
		Hands:      make([]string, len(s.Players)),
		Board:      table.FormatCards(s.CommunityCards),
		Bets:       make([]int64, len(s.Players)),
	}
	for i := range s.Players {
		p := &s.Players[i]
		if !p.Folded && p.InGame {
			req.Hands[i] = table.FormatCards(p.Hand)
		}
		req.Bets[i] = p.TotalBet
	}
	return req
}

// DetermineWinners 本地比牌。最高分并列的全部为赢家（按座位顺序），
// skipPotDistribution=false 时平分底池，余数从第一个赢家开始每人多一个单位。
func DetermineWinners(s *GameState, skipPotDistribution bool) *GameState {
	ns := s.Clone()
	ns.IsHandComplete = true
	ns.CurrentRound = Showdown
	ns.PlayersToActInRound = 0

	var (
		best    evaluator.HandEvaluation
		winners []int
	)
	for i := range ns.Players {
		p := &ns.Players[i]
		if p.Folded || !p.InGame {
			continue
		}
		ev := evaluator.Evaluate(p.Hand, ns.CommunityCards)
		switch c := evaluator.Compare(ev, best); {
		case winners == nil || c > 0:
			best = ev
			winners = []int{i}
		case c == 0:
			winners = append(winners, i)
		}
	}
	if len(winners) == 0 {
		return ns
	}

	ns.Winners = make([]int, len(winners))
	for k, idx := range winners {
		ns.Winners[k] = ns.Players[idx].ID
	}

	if !skipPotDistribution {
		share := ns.Pot / int64(len(winners))
		remainder := ns.Pot % int64(len(winners))
		for k, idx := range winners {
			ns.Players[idx].Balance += share
			if int64(k) < remainder {
				ns.Players[idx].Balance++
			}
		}
		ns.Resolved = true
		ns.recordEliminations()
	}
	return ns
}

// ApplyShowdownResult 用账本结果覆盖赢家与余额；可在本地结算之后再次应用
func ApplyShowdownResult(s *GameState, r ShowdownResult) (*GameState, error) {
	n := len(s.Players)
	if len(r.Balances) != n {
		return nil, fmt.Errorf("%w: %d balances for %d seats", ErrInvalidShowdownResult, len(r.Balances), n)
	}

	var seats []int64
	if r.WinnerIndex == TieSentinel {
		if len(r.TiePlayers) == 0 {
			return nil, fmt.Errorf("%w: tie without tie players", ErrInvalidShowdownResult)
		}
		seats = r.TiePlayers
	} else {
		seats = []int64{r.WinnerIndex}
	}

	ns := s.Clone()
	ns.Winners = make([]int, 0, len(seats))
	for _, seat := range seats {
		if seat < 0 || seat >= int64(n) {
			return nil, fmt.Errorf("%w: winner seat %d out of range", ErrInvalidShowdownResult, seat)
		}
		ns.Winners = append(ns.Winners, ns.Players[seat].ID)
	}
	for i, b := range r.Balances {
		if b < 0 {
			return nil, fmt.Errorf("%w: negative balance at seat %d", ErrInvalidShowdownResult, i)
		}
		ns.Players[i].Balance = b
	}

	ns.IsHandComplete = true
	ns.CurrentRound = Showdown
	ns.PlayersToActInRound = 0
	ns.Resolved = true
	ns.recordEliminations()
	return ns, nil
}
