package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// 花色顺序与建牌顺序一致：♠ ♥ ♦ ♣
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitSymbols = []string{"♠", "♥", "♦", "♣"}

func (s Suit) String() string {
	if s < 0 || int(s) >= len(suitSymbols) {
		return "?"
	}
	return suitSymbols[s]
}

// Rank 2-14，A = 14
type Rank int

const (
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

var faceRanks = map[Rank]string{
	Jack:  "J",
	Queen: "Q",
	King:  "K",
	Ace:   "A",
}

func (r Rank) String() string {
	if s, ok := faceRanks[r]; ok {
		return s
	}
	return strconv.Itoa(int(r))
}

// Card 不可变值类型，suit+rank 即身份
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// String 返回账本使用的紧凑格式 "<suit><rank>"，例如 "♠A"、"♦10"
func (c Card) String() string {
	return c.Suit.String() + c.Rank.String()
}

func (c Card) Valid() bool {
	return c.Suit >= Spades && c.Suit <= Clubs && c.Rank >= 2 && c.Rank <= Ace
}

// Deck 有序牌堆，从前往后消费
type Deck []Card

var ErrInvalidCard = errors.New("invalid card")

// FormatCards 把多张牌拼成 "♠A♥K"
func FormatCards(cards []Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}

// ParseCards 解析 FormatCards 的输出
func ParseCards(s string) ([]Card, error) {
	out := make([]Card, 0, len(s)/4)
	rest := s
	for rest != "" {
		suit := Suit(-1)
		for i, sym := range suitSymbols {
			if strings.HasPrefix(rest, sym) {
				suit = Suit(i)
				rest = rest[len(sym):]
				break
			}
		}
		if suit < 0 {
			return nil, fmt.Errorf("%w: bad suit in %q", ErrInvalidCard, s)
		}

		// rank 读到下一个花色符号为止
		end := len(rest)
		for _, sym := range suitSymbols {
			if i := strings.Index(rest, sym); i >= 0 && i < end {
				end = i
			}
		}
		rank, err := parseRank(rest[:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v in %q", ErrInvalidCard, err, s)
		}
		out = append(out, Card{Suit: suit, Rank: rank})
		rest = rest[end:]
	}
	return out, nil
}

// MustParseCards 仅用于固定牌局和测试
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func parseRank(s string) (Rank, error) {
	for r, name := range faceRanks {
		if s == name {
			return r, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 2 || n > 10 {
		return 0, fmt.Errorf("bad rank %q", s)
	}
	return Rank(n), nil
}

// GameMode 创建会话时显式传入
type GameMode string

const (
	ModeNormal GameMode = "normal"
	ModeCooler GameMode = "cooler"
	ModeEpic   GameMode = "epic"
)

func (m GameMode) Valid() bool {
	switch m {
	case ModeNormal, ModeCooler, ModeEpic:
		return true
	}
	return false
}
