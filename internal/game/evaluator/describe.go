package evaluator

import "fmt"

var rankNames = map[int][2]string{
	2:  {"Two", "Twos"},
	3:  {"Three", "Threes"},
	4:  {"Four", "Fours"},
	5:  {"Five", "Fives"},
	6:  {"Six", "Sixes"},
	7:  {"Seven", "Sevens"},
	8:  {"Eight", "Eights"},
	9:  {"Nine", "Nines"},
	10: {"Ten", "Tens"},
	11: {"Jack", "Jacks"},
	12: {"Queen", "Queens"},
	13: {"King", "Kings"},
	14: {"Ace", "Aces"},
}

func one(r int) string  { return rankNames[r][0] }
func many(r int) string { return rankNames[r][1] }

// describe 例如 "Pair of Kings"、"Full House, Twos full of Aces"
func describe(c Category, tb []int) string {
	if len(tb) == 0 {
		return c.String()
	}
	switch c {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s high", one(tb[0]))
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", many(tb[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", many(tb[0]), many(tb[1]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", one(tb[0]))
	case Straight:
		return fmt.Sprintf("Straight, %s high", one(tb[0]))
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", many(tb[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", many(tb[0]), many(tb[1]))
	case OnePair:
		return fmt.Sprintf("Pair of %s", many(tb[0]))
	}
	return fmt.Sprintf("High Card, %s", one(tb[0]))
}
