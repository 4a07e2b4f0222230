// Package models holds the value types shared by the game core: cards,
// players, phases, and the enums the update schema validates against.
package models

import "github.com/google/uuid"

// Suit is a single-letter suit code, matching the wire format.
type Suit string

const (
	SuitHearts   Suit = "H"
	SuitDiamonds Suit = "D"
	SuitClubs    Suit = "C"
	SuitSpades   Suit = "S"
)

// Suits lists the four suits in deal order.
var Suits = [4]Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Rank is a single-letter rank code ("A", "2".."9", "T", "J", "Q", "K").
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "T"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Ranks lists the thirteen ranks in deal order.
var Ranks = [13]Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

// Power tags the special ability a card grants when played.
type Power string

const (
	PowerNone       Power = "none"
	PowerQueen      Power = "queen"       // peek any one face-down card
	PowerJack       Power = "jack"        // swap two cards across hands
	PowerAddedPower Power = "added_power" // reserved for house-rule decks
)

// Card is an immutable value object. Identity is the assigned ID once the
// card is tracked in a shared deck; (Suit, Rank) alone is ambiguous in a
// four-suit deck.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Suit Suit      `json:"suit"`
	Rank Rank      `json:"rank"`
}

// Value returns the card's point value. Number cards count face value,
// aces one, jack eleven, queen twelve. Black kings count thirteen; red
// kings are the bonus card and count zero.
func (c Card) Value() int {
	switch c.Rank {
	case RankAce:
		return 1
	case RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven, RankEight, RankNine:
		return int(c.Rank[0] - '0')
	case RankTen:
		return 10
	case RankJack:
		return 11
	case RankQueen:
		return 12
	case RankKing:
		if c.Suit == SuitHearts || c.Suit == SuitDiamonds {
			return 0
		}
		return 13
	}
	return 0
}

// PowerTag returns the special power the card carries when played.
func (c Card) PowerTag() Power {
	switch c.Rank {
	case RankQueen:
		return PowerQueen
	case RankJack:
		return PowerJack
	default:
		return PowerNone
	}
}

// NewDeck builds a full 52-card deck with freshly assigned card ids.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{ID: uuid.New(), Suit: s, Rank: r})
		}
	}
	return deck
}
