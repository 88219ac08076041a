package deck

import (
	rand "math/rand/v2"
)

// Canonical returns the 52 cards in canonical index order (♠2..♠A, ♥2..♥A,
// ♦2..♦A, ♣2..♣A). Position i holds the card whose Index() is i.
func Canonical() []Card {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// Deck is a locally shuffled deck used when a table runs without the mental
// poker protocol, plus burn-card bookkeeping for street deals.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a shuffled 52-card deck using the provided RNG. The RNG must
// not be nil; callers that want reproducible deals inject a seeded one.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: Canonical(), rng: rng}
	d.shuffle()
	return d
}

func (d *Deck) shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the top card. ok is false once the deck is empty.
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Burn discards the top card before a street deal.
func (d *Deck) Burn() {
	if len(d.cards) > 0 {
		d.cards = d.cards[1:]
	}
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
