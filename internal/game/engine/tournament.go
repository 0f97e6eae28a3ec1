package engine

import (
	"slices"

	"CoolerPoker/internal/game/table"
)

// NoWinner 锦标赛未结束，或所有座位都没有筹码
const NoWinner = -1

// Elimination 某个座位在结算后筹码归零时的记录（爆冷保险理赔用）
type Elimination struct {
	PlayerID     int          `json:"playerId"` // 账本读回的记录没有 ID，为 -1
	Chair        int          `json:"chair"`
	Address      string       `json:"address,omitempty"`
	HandNumber   int          `json:"handNumber"`
	PlayerHand   []table.Card `json:"playerHand"`
	OpponentHand []table.Card `json:"opponentHand"`
	Board        []table.Card `json:"board"`
}

// TournamentWinner 只剩一个座位有筹码时返回其玩家 ID
func TournamentWinner(s *GameState) int {
	winner := NoWinner
	for i := range s.Players {
		if s.Players[i].Balance <= 0 {
			continue
		}
		if winner != NoWinner {
			return NoWinner
		}
		winner = s.Players[i].ID
	}
	return winner
}

// EliminationOf 找不到返回 false
func (s *GameState) EliminationOf(playerID int) (Elimination, bool) {
	for _, e := range s.Eliminations {
		if e.PlayerID == playerID {
			return e, true
		}
	}
	return Elimination{}, false
}

func (s *GameState) updateTournament() {
	s.TournamentFinished = len(s.Players) >= 2 && s.countFunded() < 2
	s.TournamentWinner = NoWinner
	if s.TournamentFinished {
		s.TournamentWinner = TournamentWinner(s)
	}
}

func (s *GameState) countFunded() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].Balance > 0 {
			n++
		}
	}
	return n
}

// recordEliminations 结算后调用。同一手再次结算（账本覆盖本地）时先丢掉本手的旧记录
func (s *GameState) recordEliminations() {
	hand := s.HandNumber
	s.Eliminations = slices.DeleteFunc(s.Eliminations, func(e Elimination) bool {
		return e.HandNumber == hand
	})

	// 对手牌取第一个赢家
	var opponent []table.Card
	if len(s.Winners) > 0 {
		if w := s.PlayerByID(s.Winners[0]); w >= 0 {
			opponent = s.Players[w].Hand
		}
	}

	for i := range s.Players {
		p := &s.Players[i]
		if !p.InGame || p.Balance > 0 {
			continue
		}
		if _, done := s.EliminationOf(p.ID); done {
			continue
		}
		s.Eliminations = append(s.Eliminations, Elimination{
			PlayerID:     p.ID,
			Chair:        p.Chair,
			Address:      p.Address,
			HandNumber:   hand,
			PlayerHand:   slices.Clone(p.Hand),
			OpponentHand: slices.Clone(opponent),
			Board:        slices.Clone(s.CommunityCards),
		})
	}
	s.updateTournament()
}
