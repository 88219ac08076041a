package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onfelt/holdemd/internal/chips"
)

func TestReturnUncalled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		contribs   []Contribution
		wantSeat   int
		wantRefund chips.Amount
	}{
		{
			name: "fully matched",
			contribs: []Contribution{
				{Seat: 0, Amount: 100},
				{Seat: 1, Amount: 100},
			},
			wantSeat: -1,
		},
		{
			name: "uncalled raise returns",
			contribs: []Contribution{
				{Seat: 0, Amount: 100},
				{Seat: 1, Amount: 40},
			},
			wantSeat:   0,
			wantRefund: 60,
		},
		{
			name: "folded partial call caps the refund",
			contribs: []Contribution{
				{Seat: 0, Amount: 100},
				{Seat: 1, Amount: 70, Folded: true},
				{Seat: 2, Amount: 40},
			},
			wantSeat:   0,
			wantRefund: 30,
		},
		{
			name: "everyone folded to the bettor",
			contribs: []Contribution{
				{Seat: 0, Amount: 10},
				{Seat: 1, Amount: 2, Folded: true},
			},
			wantSeat:   0,
			wantRefund: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			adjusted, seat, refund := ReturnUncalled(tt.contribs)
			assert.Equal(t, tt.wantSeat, seat)
			assert.Equal(t, tt.wantRefund, refund)

			var before, after chips.Amount
			for _, c := range tt.contribs {
				before += c.Amount
			}
			for _, c := range adjusted {
				after += c.Amount
			}
			assert.Equal(t, before-refund, after, "refund must come out of the total")
		})
	}
}

func TestBuildPots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contribs []Contribution
		want     []Pot
	}{
		{
			name: "single pot",
			contribs: []Contribution{
				{Seat: 0, Amount: 50},
				{Seat: 1, Amount: 50},
				{Seat: 2, Amount: 50},
			},
			want: []Pot{
				{Amount: 150, Eligible: []int{0, 1, 2}, Type: MainPot},
			},
		},
		{
			name: "short all-in splits a side pot",
			contribs: []Contribution{
				{Seat: 0, Amount: 100},
				{Seat: 1, Amount: 40},
				{Seat: 2, Amount: 100},
			},
			want: []Pot{
				{Amount: 120, Eligible: []int{0, 1, 2}, Type: MainPot},
				{Amount: 120, Eligible: []int{0, 2}, Type: SidePot},
			},
		},
		{
			name: "two short stacks stack two side pots",
			contribs: []Contribution{
				{Seat: 0, Amount: 20},
				{Seat: 1, Amount: 60},
				{Seat: 2, Amount: 100},
				{Seat: 3, Amount: 100},
			},
			want: []Pot{
				{Amount: 80, Eligible: []int{0, 1, 2, 3}, Type: MainPot},
				{Amount: 120, Eligible: []int{1, 2, 3}, Type: SidePot},
				{Amount: 80, Eligible: []int{2, 3}, Type: SidePot},
			},
		},
		{
			name: "folded dead money stays in the pot",
			contribs: []Contribution{
				{Seat: 0, Amount: 50},
				{Seat: 1, Amount: 20, Folded: true},
				{Seat: 2, Amount: 50},
			},
			want: []Pot{
				{Amount: 120, Eligible: []int{0, 2}, Type: MainPot},
			},
		},
		{
			name: "dead top layer merges down",
			contribs: []Contribution{
				{Seat: 0, Amount: 50, Folded: true},
				{Seat: 1, Amount: 20},
				{Seat: 2, Amount: 20},
			},
			want: []Pot{
				{Amount: 90, Eligible: []int{1, 2}, Type: MainPot},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pots := BuildPots(tt.contribs)
			require.Equal(t, tt.want, pots)

			var contributed, potted chips.Amount
			for _, c := range tt.contribs {
				contributed += c.Amount
			}
			for _, p := range pots {
				potted += p.Amount
			}
			assert.Equal(t, contributed, potted, "pots must sum to the contributions")
		})
	}
}

func TestBuildPotsEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, BuildPots(nil))
	assert.Nil(t, BuildPots([]Contribution{{Seat: 0, Amount: 0}}))
}

func TestDistributePot(t *testing.T) {
	t.Parallel()

	t.Run("even split", func(t *testing.T) {
		t.Parallel()
		got := DistributePot(Pot{Amount: 100}, []int{1, 3}, 0, 6)
		assert.Equal(t, []PotWinner{{Seat: 1, Amount: 50}, {Seat: 3, Amount: 50}}, got)
	})

	t.Run("odd chip goes left of the dealer first", func(t *testing.T) {
		t.Parallel()
		got := DistributePot(Pot{Amount: 21}, []int{4, 2}, 0, 6)
		assert.Equal(t, []PotWinner{{Seat: 2, Amount: 11}, {Seat: 4, Amount: 10}}, got)
	})

	t.Run("winner wrapping past seat zero", func(t *testing.T) {
		t.Parallel()
		// Dealer at 5: clockwise order is 0, 4.
		got := DistributePot(Pot{Amount: 7}, []int{4, 0}, 5, 6)
		assert.Equal(t, []PotWinner{{Seat: 0, Amount: 4}, {Seat: 4, Amount: 3}}, got)
	})

	t.Run("no winners", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, DistributePot(Pot{Amount: 10}, nil, 0, 6))
	})
}
