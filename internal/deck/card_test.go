package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onfelt/holdemd/internal/randutil"
)

func TestCardIndexRoundTrip(t *testing.T) {
	t.Parallel()

	for i := 0; i < 52; i++ {
		card, err := FromIndex(i)
		require.NoError(t, err)
		assert.Equal(t, i, card.Index())
	}

	_, err := FromIndex(52)
	assert.Error(t, err)
	_, err = FromIndex(-1)
	assert.Error(t, err)
}

func TestCanonicalOrdering(t *testing.T) {
	t.Parallel()

	cards := Canonical()
	require.Len(t, cards, 52)
	assert.Equal(t, NewCard(Spades, Two), cards[0])
	assert.Equal(t, NewCard(Spades, Ace), cards[12])
	assert.Equal(t, NewCard(Clubs, Ace), cards[51])
	for i, c := range cards {
		assert.Equal(t, i, c.Index())
	}
}

func TestCardWireEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		card Card
		json string
	}{
		{NewCard(Spades, Ace), `{"suit":"♠","rank":"A"}`},
		{NewCard(Hearts, Ten), `{"suit":"♥","rank":"10"}`},
		{NewCard(Diamonds, Two), `{"suit":"♦","rank":"2"}`},
		{NewCard(Clubs, Queen), `{"suit":"♣","rank":"Q"}`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.card)
		require.NoError(t, err)
		assert.JSONEq(t, tt.json, string(data))

		var got Card
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, tt.card, got)
	}
}

func TestCardWireDecodingAsciiSuits(t *testing.T) {
	t.Parallel()

	var c Card
	require.NoError(t, json.Unmarshal([]byte(`{"suit":"h","rank":"T"}`), &c))
	assert.Equal(t, NewCard(Hearts, Ten), c)
}

func TestDeckDealsAllCardsOnce(t *testing.T) {
	t.Parallel()

	d := New(randutil.New(42))
	seen := make(map[int]bool)
	for {
		card, ok := d.Deal()
		if !ok {
			break
		}
		assert.False(t, seen[card.Index()], "card %s dealt twice", card)
		seen[card.Index()] = true
	}
	assert.Len(t, seen, 52)
}

func TestDeckBurn(t *testing.T) {
	t.Parallel()

	d := New(randutil.New(1))
	d.Burn()
	assert.Equal(t, 51, d.Remaining())
}
