package dealer

import (
	"testing"

	"CoolerPoker/internal/game/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 工具：检查是否有重复牌
func hasDuplicates(cards []table.Card) bool {
	seen := make(map[table.Card]bool)
	for _, c := range cards {
		if seen[c] {
			return true
		}
		seen[c] = true
	}
	return false
}

// ✅ 测试牌组初始化
func TestNewDeck(t *testing.T) {
	deck := NewDeck()

	if len(deck) != 52 {
		t.Fatalf("expected 52 cards, got %d", len(deck))
	}
	if hasDuplicates(deck) {
		t.Fatalf("deck should not contain duplicates")
	}

	// 花色优先、点数升序
	assert.Equal(t, table.Card{Suit: table.Spades, Rank: 2}, deck[0])
	assert.Equal(t, table.Card{Suit: table.Spades, Rank: table.Ace}, deck[12])
	assert.Equal(t, table.Card{Suit: table.Hearts, Rank: 2}, deck[13])
	assert.Equal(t, table.Card{Suit: table.Clubs, Rank: table.Ace}, deck[51])
}

// ✅ 洗牌是排列，且不修改入参
func TestShuffleIsPermutation(t *testing.T) {
	d := NewDealer(42)
	src := NewDeck()
	shuffled := d.Shuffle(src)

	assert.Equal(t, NewDeck(), src, "input deck must be untouched")
	assert.ElementsMatch(t, src, shuffled)
	assert.NotEqual(t, src, shuffled)
}

func TestShuffleDeterministicPerSeed(t *testing.T) {
	d1 := NewDealer(42)
	d2 := NewDealer(42)
	assert.Equal(t, d1.ShuffledDeck(), d2.ShuffledDeck(), "same seed, same order")

	d3 := NewDealer(99)
	assert.NotEqual(t, NewDealer(42).ShuffledDeck(), d3.ShuffledDeck())
}

// ✅ 测试底牌发放逻辑（轮流发）
func TestDealPlayerCardsRoundRobin(t *testing.T) {
	deck := NewDeck()
	hands, rest := DealPlayerCards(deck, 3, 2)

	require.Len(t, hands, 3)
	// 第一圈 deck[0..2]，第二圈 deck[3..5]
	assert.Equal(t, []table.Card{deck[0], deck[3]}, hands[0])
	assert.Equal(t, []table.Card{deck[1], deck[4]}, hands[1])
	assert.Equal(t, []table.Card{deck[2], deck[5]}, hands[2])
	assert.Len(t, rest, 52-6)
	assert.Equal(t, deck[6], rest[0])

	all := append(append([]table.Card{}, rest...), hands[0]...)
	all = append(all, hands[1]...)
	all = append(all, hands[2]...)
	assert.False(t, hasDuplicates(all))
	assert.Len(t, all, 52)
}

// ✅ 测试公共牌发放逻辑
func TestDealCommunity(t *testing.T) {
	deck := NewDealer(2).ShuffledDeck()

	flop, deck := DealCommunity(deck, 3)
	turn, deck := DealCommunity(deck, 1)
	river, deck := DealCommunity(deck, 1)

	if len(flop) != 3 || len(turn) != 1 || len(river) != 1 {
		t.Fatalf("expected 3+1+1 cards, got %d %d %d", len(flop), len(turn), len(river))
	}

	all := append(append(flop, turn...), river...)
	if hasDuplicates(append(all, deck...)) {
		t.Fatalf("community cards contain duplicates")
	}
	if len(deck) != 52-5 {
		t.Fatalf("expected 47 remaining, got %d", len(deck))
	}
}

// ✅ 牌不够时必须 panic，不能少发
func TestDealPanicsWhenExhausted(t *testing.T) {
	deck := NewDeck()[:3]

	assert.PanicsWithError(t, "deck exhausted: need 4 cards, 3 left", func() {
		DealCommunity(deck, 4)
	})
	assert.Panics(t, func() {
		DealPlayerCards(deck, 2, 2)
	})
}

func TestWithout(t *testing.T) {
	used := table.MustParseCards("♠A♥K")
	rest := Without(NewDeck(), used)
	assert.Len(t, rest, 50)
	assert.NotContains(t, rest, used[0])
	assert.NotContains(t, rest, used[1])
}
