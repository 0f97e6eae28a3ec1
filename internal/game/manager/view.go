package manager

import (
	"CoolerPoker/internal/game/engine"
	"CoolerPoker/internal/game/evaluator"
	"CoolerPoker/internal/game/table"
)

// View 推给某个玩家的状态：别人的底牌在摊牌前隐藏，公共牌按轮次露出
type View struct {
	SessionID string `json:"sessionId"`
	*engine.GameState
	YourIndex int                       `json:"yourIndex"`
	YourHand  *evaluator.HandEvaluation `json:"yourHand,omitempty"`
}

func NewView(sessionID string, s *engine.GameState, viewer int) View {
	vs := s.Clone()
	vs.CommunityCards = s.VisibleCommunity()
	showdown := s.CurrentRound == engine.Showdown

	for i := range vs.Players {
		p := &vs.Players[i]
		if i == viewer || (showdown && !p.Folded) {
			continue
		}
		p.Hand = nil
	}

	v := View{SessionID: sessionID, GameState: vs, YourIndex: viewer}
	if viewer >= 0 && viewer < len(vs.Players) && len(vs.Players[viewer].Hand) > 0 {
		ev := evaluator.Evaluate(vs.Players[viewer].Hand, vs.CommunityCards)
		v.YourHand = &ev
	}
	return v
}

type revealed struct {
	PlayerID    int    `json:"playerId"`
	Cards       string `json:"cards"`
	Description string `json:"description"`
}

func revealedHands(s *engine.GameState) []revealed {
	var out []revealed
	for _, p := range s.Players {
		if p.Folded || !p.InGame {
			continue
		}
		ev := evaluator.Evaluate(p.Hand, s.CommunityCards)
		out = append(out, revealed{
			PlayerID:    p.ID,
			Cards:       table.FormatCards(p.Hand),
			Description: ev.Description,
		})
	}
	return out
}

func balances(s *engine.GameState) map[int]int64 {
	out := make(map[int]int64, len(s.Players))
	for _, p := range s.Players {
		out[p.ID] = p.Balance
	}
	return out
}
