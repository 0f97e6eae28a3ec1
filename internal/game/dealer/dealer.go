package dealer

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"CoolerPoker/internal/game/table"
)

// ErrDeckExhausted 牌不够发属于编程错误，直接 panic，不做截断
var ErrDeckExhausted = errors.New("deck exhausted")

// Dealer 持有随机源，负责洗牌与固定牌局（无规则判断）
type Dealer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// NewDeck 按花色优先、点数升序生成 52 张牌，只作为洗牌输入
func NewDeck() table.Deck {
	deck := make(table.Deck, 0, 52)
	for s := table.Spades; s <= table.Clubs; s++ {
		for r := table.Rank(2); r <= table.Ace; r++ {
			deck = append(deck, table.Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle Fisher–Yates，返回新切片，不修改入参
func (d *Dealer) Shuffle(deck table.Deck) table.Deck {
	out := make(table.Deck, len(deck))
	copy(out, deck)

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := d.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ShuffledDeck = Shuffle(NewDeck())
func (d *Dealer) ShuffledDeck() table.Deck {
	return d.Shuffle(NewDeck())
}

// Intn 供固定牌局随机挑选剧本
func (d *Dealer) Intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rnd.Intn(n)
}

// DealPlayerCards 轮流发牌：每人一张，重复 perPlayer 次
func DealPlayerCards(deck table.Deck, players, perPlayer int) ([][]table.Card, table.Deck) {
	need := players * perPlayer
	mustHave(deck, need)

	hands := make([][]table.Card, players)
	for p := range hands {
		hands[p] = make([]table.Card, 0, perPlayer)
	}
	idx := 0
	for i := 0; i < perPlayer; i++ {
		for p := 0; p < players; p++ {
			hands[p] = append(hands[p], deck[idx])
			idx++
		}
	}
	return hands, remainder(deck, idx)
}

// DealCommunity 取前 count 张作为公共牌（不烧牌）
func DealCommunity(deck table.Deck, count int) ([]table.Card, table.Deck) {
	mustHave(deck, count)
	cards := make([]table.Card, count)
	copy(cards, deck[:count])
	return cards, remainder(deck, count)
}

// Without 返回剔除 used 后的牌，顺序不变
func Without(deck table.Deck, used ...[]table.Card) table.Deck {
	seen := make(map[table.Card]bool)
	for _, cs := range used {
		for _, c := range cs {
			seen[c] = true
		}
	}
	out := make(table.Deck, 0, len(deck))
	for _, c := range deck {
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

func mustHave(deck table.Deck, n int) {
	if n < 0 || n > len(deck) {
		panic(fmt.Errorf("%w: need %d cards, %d left", ErrDeckExhausted, n, len(deck)))
	}
}

func remainder(deck table.Deck, from int) table.Deck {
	rest := make(table.Deck, len(deck)-from)
	copy(rest, deck[from:])
	return rest
}
