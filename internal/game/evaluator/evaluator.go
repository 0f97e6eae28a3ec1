// 5~7 张牌型评估；分数越大牌越大，同等牌力分数相同
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"CoolerPoker/internal/game/table"

	"github.com/holiman/uint256"
)

type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"High Card",
	"One Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
	"Royal Flush",
}

func (c Category) String() string {
	if c < HighCard || c > RoyalFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

type HandEvaluation struct {
	Name        string       `json:"name"`
	Category    Category     `json:"category"`
	Description string       `json:"description"`
	BestFive    []table.Card `json:"bestFive"`
	Score       uint256.Int  `json:"-"`
	Tiebreaker  []int        `json:"tiebreaker"`
}

// ErrTooManyCards 超过 7 张属于编程错误，直接 panic
var ErrTooManyCards = errors.New("more than 7 cards to evaluate")

// Evaluate 合并底牌与公共牌（最多 7 张），找出最佳 5 张
func Evaluate(hole []table.Card, community []table.Card) HandEvaluation {
	if n := len(hole) + len(community); n > 7 {
		panic(fmt.Errorf("%w: got %d", ErrTooManyCards, n))
	}
	cards := make([]table.Card, 0, len(hole)+len(community))
	cards = append(cards, hole...)
	cards = append(cards, community...)
	sortDesc(cards)
	if len(cards) == 0 {
		return build(HighCard, nil, nil)
	}

	if sf := findStraightFlush(cards); sf != nil {
		high := straightHigh(sf)
		if high == int(table.Ace) {
			return build(RoyalFlush, sf, []int{high})
		}
		return build(StraightFlush, sf, []int{high})
	}

	groups := groupByRank(cards)

	if quad := firstWithSize(groups, 4); quad != nil {
		kickers := excluding(cards, quad.rank)
		best := append([]table.Card{}, quad.cards...)
		tb := []int{int(quad.rank)}
		if len(kickers) > 0 {
			best = append(best, kickers[0])
			tb = append(tb, int(kickers[0].Rank))
		}
		return build(FourOfAKind, best, tb)
	}

	trips := withSize(groups, 3)
	pairs := withSize(groups, 2)

	if len(trips) > 0 && (len(pairs) > 0 || len(trips) > 1) {
		// 第二组三条可以拆成对子
		top := trips[0]
		var pair *rankGroup
		if len(trips) > 1 {
			pair = &rankGroup{rank: trips[1].rank, cards: trips[1].cards[:2]}
		}
		if len(pairs) > 0 && (pair == nil || pairs[0].rank > pair.rank) {
			pair = &pairs[0]
		}
		best := append(append([]table.Card{}, top.cards...), pair.cards...)
		return build(FullHouse, best, []int{int(top.rank), int(pair.rank)})
	}

	if fl := findFlush(cards); fl != nil {
		return build(Flush, fl, ranksOf(fl))
	}

	if st := findStraight(cards); st != nil {
		return build(Straight, st, []int{straightHigh(st)})
	}

	if len(trips) > 0 {
		top := trips[0]
		kickers := take(excluding(cards, top.rank), 2)
		best := append(append([]table.Card{}, top.cards...), kickers...)
		return build(ThreeOfAKind, best, append([]int{int(top.rank)}, ranksOf(kickers)...))
	}

	if len(pairs) >= 2 {
		hi, lo := pairs[0], pairs[1]
		kickers := take(excluding(excluding(cards, hi.rank), lo.rank), 1)
		best := append(append(append([]table.Card{}, hi.cards...), lo.cards...), kickers...)
		return build(TwoPair, best, append([]int{int(hi.rank), int(lo.rank)}, ranksOf(kickers)...))
	}

	if len(pairs) == 1 {
		p := pairs[0]
		kickers := take(excluding(cards, p.rank), 3)
		best := append(append([]table.Card{}, p.cards...), kickers...)
		return build(OnePair, best, append([]int{int(p.rank)}, ranksOf(kickers)...))
	}

	best := take(cards, 5)
	return build(HighCard, best, ranksOf(best))
}

// Compare 返回 a.Score - b.Score 的符号
func Compare(a, b HandEvaluation) int {
	return a.Score.Cmp(&b.Score)
}

var scoreWeights = [...]uint64{
	10_000_000_000,
	100_000_000,
	1_000_000,
	10_000,
	1,
}

const categoryWeight = 10_000_000_000_000

// category*10^13 + tb[0]*10^10 + tb[1]*10^8 + tb[2]*10^6 + tb[3]*10^4 + tb[4]
func buildScore(category Category, tiebreaker []int) uint256.Int {
	var score, term uint256.Int
	score.SetUint64(uint64(category))
	score.Mul(&score, uint256.NewInt(categoryWeight))
	for i := 0; i < len(tiebreaker) && i < len(scoreWeights); i++ {
		term.SetUint64(uint64(tiebreaker[i]))
		term.Mul(&term, uint256.NewInt(scoreWeights[i]))
		score.Add(&score, &term)
	}
	return score
}

func build(category Category, best []table.Card, tiebreaker []int) HandEvaluation {
	if best == nil {
		best = []table.Card{}
	}
	if tiebreaker == nil {
		tiebreaker = []int{}
	}
	return HandEvaluation{
		Name:        category.String(),
		Category:    category,
		Description: describe(category, tiebreaker),
		BestFive:    best,
		Score:       buildScore(category, tiebreaker),
		Tiebreaker:  tiebreaker,
	}
}

type rankGroup struct {
	rank  table.Rank
	cards []table.Card
}

// groupByRank 按点数降序分组
func groupByRank(cards []table.Card) []rankGroup {
	var groups []rankGroup
	for _, c := range cards {
		n := len(groups)
		if n > 0 && groups[n-1].rank == c.Rank {
			groups[n-1].cards = append(groups[n-1].cards, c)
			continue
		}
		groups = append(groups, rankGroup{rank: c.Rank, cards: []table.Card{c}})
	}
	return groups
}

func withSize(groups []rankGroup, size int) []rankGroup {
	var out []rankGroup
	for _, g := range groups {
		if len(g.cards) == size {
			out = append(out, g)
		}
	}
	return out
}

func firstWithSize(groups []rankGroup, size int) *rankGroup {
	for i := range groups {
		if len(groups[i].cards) == size {
			return &groups[i]
		}
	}
	return nil
}

func bySuit(cards []table.Card) map[table.Suit][]table.Card {
	out := make(map[table.Suit][]table.Card, 4)
	for _, c := range cards {
		out[c.Suit] = append(out[c.Suit], c)
	}
	return out
}

func findStraightFlush(cards []table.Card) []table.Card {
	for _, suited := range bySuit(cards) {
		if len(suited) >= 5 {
			if run := findStraight(suited); run != nil {
				return run
			}
		}
	}
	return nil
}

func findFlush(cards []table.Card) []table.Card {
	for _, suited := range bySuit(cards) {
		if len(suited) >= 5 {
			// cards 已降序
			return take(suited, 5)
		}
	}
	return nil
}

// findStraight 输入须已降序；A 在 A-2-3-4-5 中作 1
func findStraight(cards []table.Card) []table.Card {
	byRank := make(map[int]table.Card, len(cards))
	for _, c := range cards {
		if _, ok := byRank[int(c.Rank)]; !ok {
			byRank[int(c.Rank)] = c
		}
	}
	if ace, ok := byRank[int(table.Ace)]; ok {
		byRank[1] = ace
	}

	for high := int(table.Ace); high >= 5; high-- {
		run := make([]table.Card, 0, 5)
		for r := high; r > high-5; r-- {
			c, ok := byRank[r]
			if !ok {
				break
			}
			run = append(run, c)
		}
		if len(run) == 5 {
			return run
		}
	}
	return nil
}

// straightHigh 轮子（A-5）最高牌为 5
func straightHigh(run []table.Card) int {
	if run[0].Rank == 5 && run[4].Rank == table.Ace {
		return 5
	}
	return int(run[0].Rank)
}

func excluding(cards []table.Card, rank table.Rank) []table.Card {
	out := make([]table.Card, 0, len(cards))
	for _, c := range cards {
		if c.Rank != rank {
			out = append(out, c)
		}
	}
	return out
}

func take(cards []table.Card, n int) []table.Card {
	if len(cards) < n {
		n = len(cards)
	}
	return append([]table.Card{}, cards[:n]...)
}

func ranksOf(cards []table.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = int(c.Rank)
	}
	return out
}

func sortDesc(cards []table.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Rank > cards[j].Rank
	})
}
