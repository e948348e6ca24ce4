package delivery

import "strings"

// validTransitions is the delivery state machine: ASSIGNED -> ON_ROUTE ->
// DELIVERED, no skips, DELIVERED terminal.
var validTransitions = map[string][]string{
	StatusAssigned:  {StatusOnRoute},
	StatusOnRoute:   {StatusDelivered},
	StatusDelivered: {},
}

// CanTransition reports whether a delivery may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const minMemoLength = 10

// JustificationRequired reports whether assigning the chosen bid needs a
// manager memo: picking any bid above the lowest requires one of at least 10
// characters, and that memo is the sole override mechanism.
func JustificationRequired(chosenAmount, lowestAmount int64, memo string) bool {
	if chosenAmount <= lowestAmount {
		return false
	}
	return len(strings.TrimSpace(memo)) < minMemoLength
}

// LowestAmount returns the minimum bid amount. Callers guarantee bids is
// non-empty.
func LowestAmount(bids []Bid) int64 {
	lowest := bids[0].Amount
	for _, b := range bids[1:] {
		if b.Amount < lowest {
			lowest = b.Amount
		}
	}
	return lowest
}
