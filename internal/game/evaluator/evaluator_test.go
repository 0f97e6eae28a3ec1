package evaluator

import (
	"math/rand"
	"testing"

	"CoolerPoker/internal/game/table"

	"github.com/paulhankin/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(hole, board string) HandEvaluation {
	return Evaluate(table.MustParseCards(hole), table.MustParseCards(board))
}

func TestCategories(t *testing.T) {
	cases := []struct {
		name     string
		hole     string
		board    string
		category Category
		tb       []int
		desc     string
	}{
		{"royal flush", "♠A♠K", "♠Q♠J♠10♥5♦3", RoyalFlush, []int{14}, "Royal Flush"},
		{"straight flush", "♥9♥8", "♥7♥6♥5♠A♦A", StraightFlush, []int{9}, "Straight Flush, Nine high"},
		{"steel wheel", "♦A♦2", "♦3♦4♦5♠K♣K", StraightFlush, []int{5}, "Straight Flush, Five high"},
		{"quads", "♠10♣10", "♦10♥10♣A♠2♦2", FourOfAKind, []int{10, 14}, "Four of a Kind, Tens"},
		{"full house", "♥2♠A", "♣A♠2♦2♦10♥10", FullHouse, []int{2, 14}, "Full House, Twos full of Aces"},
		{"two trips make a boat", "♠9♥9", "♦9♠4♥4♦4♣K", FullHouse, []int{9, 4}, "Full House, Nines full of Fours"},
		{"flush", "♣A♣3", "♣J♣8♣6♣2♥K", Flush, []int{14, 11, 8, 6, 3}, "Flush, Ace high"},
		{"straight", "♠9♥8", "♦7♣6♠5♥K♦2", Straight, []int{9}, "Straight, Nine high"},
		{"broadway", "♠A♥K", "♦Q♣J♠10♥2♦2", Straight, []int{14}, "Straight, Ace high"},
		{"trips", "♠7♥7", "♦7♣K♠2♥9♦3", ThreeOfAKind, []int{7, 13, 9}, "Three of a Kind, Sevens"},
		{"two pair", "♠K♥K", "♦10♣10♠2♥9♦3", TwoPair, []int{13, 10, 9}, "Two Pair, Kings and Tens"},
		{"three pairs keep best kicker", "♠K♥K", "♦10♣10♠4♥4♦A", TwoPair, []int{13, 10, 14}, "Two Pair, Kings and Tens"},
		{"one pair", "♠K♥K", "♦10♣8♠2♥9♦3", OnePair, []int{13, 10, 9, 8}, "Pair of Kings"},
		{"high card", "♠A♥J", "♦9♣7♠5♥3♦2", HighCard, []int{14, 11, 9, 7, 5}, "High Card, Ace"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := eval(tc.hole, tc.board)
			assert.Equal(t, tc.category, ev.Category)
			assert.Equal(t, tc.category.String(), ev.Name)
			assert.Equal(t, tc.tb, ev.Tiebreaker)
			assert.Equal(t, tc.desc, ev.Description)
			assert.Len(t, ev.BestFive, 5)
		})
	}
}

// 每个类别都严格大于下一个类别，与花色无关
func TestCategoryMonotonicity(t *testing.T) {
	ladder := []HandEvaluation{
		eval("♥A♥K", "♥Q♥J♥10♣2♦3"),
		eval("♣9♣8", "♣7♣6♣5♥2♦3"),
		eval("♦3♠3", "♥3♣3♠A♥2♦4"),
		eval("♠K♥K", "♦K♣2♠2♥7♦8"),
		eval("♦2♦5", "♦7♦9♦J♠K♣A"),
		eval("♠6♥7", "♦8♣9♠10♥2♦2"),
		eval("♠Q♥Q", "♦Q♣2♠4♥7♦9"),
		eval("♠J♥J", "♦4♣4♠A♥7♦9"),
		eval("♠A♥A", "♦4♣J♠K♥7♦9"),
		eval("♠A♥K", "♦4♣J♠9♥7♦2"),
	}
	for i := 0; i+1 < len(ladder); i++ {
		assert.Equal(t, 1, Compare(ladder[i], ladder[i+1]), "%s should beat %s", ladder[i].Name, ladder[i+1].Name)
		assert.Equal(t, -1, Compare(ladder[i+1], ladder[i]))
	}
}

func TestEqualStrengthEqualScore(t *testing.T) {
	board := "♦10♣9♠8♥7♦6"
	a := eval("♠K♥K", board)
	b := eval("♦K♣K", board)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, 0, Compare(a, b))
	assert.Equal(t, Straight, a.Category)

	c := eval("♠K♥K", "♦10♣9♠8♥2♦3")
	d := eval("♦K♣K", "♥10♠9♣8♦2♥3")
	assert.Equal(t, 0, Compare(c, d))
	assert.Equal(t, "Pair of Kings", c.Description)
}

func TestWheelHighCardIsFive(t *testing.T) {
	ev := eval("♠A♥2", "♦3♣4♠5♥K♦Q")
	require.Equal(t, Straight, ev.Category)
	assert.Equal(t, []int{5}, ev.Tiebreaker)

	six := eval("♠6♥2", "♦3♣4♠5♥K♦Q")
	assert.Equal(t, 1, Compare(six, ev), "6-high straight beats the wheel")
}

func TestKickerDecides(t *testing.T) {
	board := "♦K♣9♠5♥3♦2"
	assert.Equal(t, 1, Compare(eval("♠A♥K", board), eval("♠Q♥K", board)))
	assert.Equal(t, 1, Compare(eval("♠K♥J", "♦K♣9♠5♥3♦2"), eval("♣K♥10", "♦K♣9♠5♥3♦2")))
}

func TestFewerThanFiveCards(t *testing.T) {
	assert.Equal(t, OnePair, eval("♠A♥A", "").Category)
	assert.Equal(t, HighCard, eval("♠A♥K", "").Category)

	empty := Evaluate(nil, nil)
	assert.Equal(t, HighCard, empty.Category)
	assert.True(t, empty.Score.IsZero())
}

func toOracle(t *testing.T, cards []table.Card) [7]poker.Card {
	t.Helper()
	suits := map[table.Suit]poker.Suit{
		table.Spades:   poker.Spade,
		table.Hearts:   poker.Heart,
		table.Diamonds: poker.Diamond,
		table.Clubs:    poker.Club,
	}
	var out [7]poker.Card
	for i, c := range cards {
		r := poker.Rank(c.Rank)
		if c.Rank == table.Ace {
			r = 1
		}
		pc, err := poker.MakeCard(suits[c.Suit], r)
		require.NoError(t, err)
		out[i] = pc
	}
	return out
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func TestMoreThanSevenCardsPanics(t *testing.T) {
	assert.PanicsWithError(t, "more than 7 cards to evaluate: got 8", func() {
		eval("♠A♥A♣2", "♦4♣J♠K♥7♦9")
	})
}

// 用独立的 7 张牌评估器校验排序
func TestOrderingMatchesReferenceEvaluator(t *testing.T) {
	rnd := rand.New(rand.NewSource(2024))
	var deck []table.Card
	for s := table.Spades; s <= table.Clubs; s++ {
		for r := table.Rank(2); r <= table.Ace; r++ {
			deck = append(deck, table.Card{Suit: s, Rank: r})
		}
	}

	for i := 0; i < 2000; i++ {
		rnd.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
		board := deck[4:9]
		h1 := []table.Card{deck[0], deck[1]}
		h2 := []table.Card{deck[2], deck[3]}

		e1 := Evaluate(h1, board)
		e2 := Evaluate(h2, board)

		o1 := toOracle(t, append(append([]table.Card{}, h1...), board...))
		o2 := toOracle(t, append(append([]table.Card{}, h2...), board...))
		want := sign(int(poker.Eval7(&o1)) - int(poker.Eval7(&o2)))

		require.Equal(t, want, Compare(e1, e2), "hands %v vs %v on %v", h1, h2, board)
	}
}
