package bot

import (
	"math"

	"CoolerPoker/internal/game/evaluator"
	"CoolerPoker/internal/game/table"
)

type Action string

const (
	Fold  Action = "fold"
	Check Action = "check"
	Call  Action = "call"
	Raise Action = "raise"
)

type Decision struct {
	Action      Action `json:"action"`
	RaiseAmount int64  `json:"raiseAmount,omitempty"`
}

// Rand 显式随机源，*rand.Rand 即满足
type Rand interface {
	Float64() float64
}

type Input struct {
	Hand           []table.Card
	CommunityCards []table.Card
	CurrentBet     int64
	BotCurrentBet  int64
	BotBalance     int64
}

const (
	callFloor    = 0.25
	callCap      = 0.95
	categoryStep = 0.07
	cheapWeight  = 0.25
	commitWeight = 0.20

	// 三条及以上视为强牌
	strongCategory = evaluator.ThreeOfAKind
	raiseChance    = 0.45
	minRaiseMult   = 1.5
	maxRaiseMult   = 3.0
)

// Decide 无副作用；除 rnd 外相同输入得到相同输出
func Decide(rnd Rand, in Input) Decision {
	toCall := in.CurrentBet - in.BotCurrentBet
	if toCall <= 0 {
		return Decision{Action: Check}
	}

	strength := evaluator.Evaluate(in.Hand, in.CommunityCards).Category

	if strength >= strongCategory && in.BotBalance > toCall {
		if rnd.Float64() < raiseChance {
			if amount, ok := raiseTo(rnd, in, toCall); ok {
				return Decision{Action: Raise, RaiseAmount: amount}
			}
		}
	}

	if rnd.Float64() < CallProbability(strength, toCall, in.BotCurrentBet, in.BotBalance) {
		// 余额不足时 call 即全下
		return Decision{Action: Call}
	}
	return Decision{Action: Fold}
}

// CallProbability 随牌力、跟注便宜程度和已投入比例递增，夹在 [callFloor, callCap]
func CallProbability(strength evaluator.Category, toCall, committed, balance int64) float64 {
	p := callFloor + categoryStep*float64(strength)

	if balance > 0 {
		ratio := float64(toCall) / float64(balance)
		p += cheapWeight * (1 - math.Min(ratio, 1))
	}
	if committed+balance > 0 {
		p += commitWeight * float64(committed) / float64(committed+balance)
	}
	return math.Max(callFloor, math.Min(callCap, p))
}

// raiseTo 当前欠注的 1.5–3 倍，上限为机器人能拿出的全部筹码
func raiseTo(rnd Rand, in Input, toCall int64) (int64, bool) {
	mult := minRaiseMult + (maxRaiseMult-minRaiseMult)*rnd.Float64()
	amount := in.CurrentBet + int64(math.Floor(float64(toCall)*mult))
	if ceiling := in.BotCurrentBet + in.BotBalance; amount > ceiling {
		amount = ceiling
	}
	if amount <= in.CurrentBet {
		return 0, false
	}
	return amount, true
}
