package dealer

import (
	"CoolerPoker/internal/game/table"
)

// Scenario 首手固定牌局的结果
type Scenario struct {
	PlayerHand     []table.Card
	BotHands       [][]table.Card
	CommunityCards []table.Card
	// 剩余牌堆（已洗），不含上面任何一张
	Remaining table.Deck
}

type script struct {
	player    string
	bots      []string
	community string
}

// cooler：玩家 2 葫芦（2 带 A），机器人 1 四条 10
var coolerScript = script{
	player:    "♥2♠A",
	bots:      []string{"♠10♣10", "♠6♦7"},
	community: "♣A♠2♦2♦10♥10",
}

// epic：玩家直接拿到皇家同花顺
var epicScripts = []script{
	{player: "♠A♠K", community: "♠Q♠J♠10♥5♦3"},
	{player: "♠10♠J", community: "♠Q♠K♠A♥5♦3"},
}

// DealModeSpecific 只在首手且模式为 cooler/epic 时生效；返回 nil 表示按普通随机发牌
func (d *Dealer) DealModeSpecific(mode table.GameMode, isFirstHand bool, botCount int) *Scenario {
	if !isFirstHand {
		return nil
	}

	switch mode {
	case table.ModeCooler:
		return d.fromScript(coolerScript, botCount)
	case table.ModeEpic:
		return d.fromScript(epicScripts[d.Intn(len(epicScripts))], botCount)
	}
	return nil
}

func (d *Dealer) fromScript(s script, botCount int) *Scenario {
	sc := &Scenario{
		PlayerHand:     table.MustParseCards(s.player),
		CommunityCards: table.MustParseCards(s.community),
		BotHands:       make([][]table.Card, 0, botCount),
	}

	used := [][]table.Card{sc.PlayerHand, sc.CommunityCards}
	for i := 0; i < botCount && i < len(s.bots); i++ {
		hand := table.MustParseCards(s.bots[i])
		sc.BotHands = append(sc.BotHands, hand)
		used = append(used, hand)
	}

	// 剧本之外的机器人从剩余牌中补齐，排除所有已用牌
	rest := d.Shuffle(Without(NewDeck(), used...))
	if missing := botCount - len(sc.BotHands); missing > 0 {
		var filler [][]table.Card
		filler, rest = DealPlayerCards(rest, missing, 2)
		sc.BotHands = append(sc.BotHands, filler...)
	}
	sc.Remaining = rest
	return sc
}
