package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusAssigned, StatusOnRoute))
	assert.True(t, CanTransition(StatusOnRoute, StatusDelivered))

	// No skips, no going back, DELIVERED is terminal.
	assert.False(t, CanTransition(StatusAssigned, StatusDelivered))
	assert.False(t, CanTransition(StatusOnRoute, StatusAssigned))
	assert.False(t, CanTransition(StatusDelivered, StatusOnRoute))
	assert.False(t, CanTransition(StatusDelivered, StatusAssigned))
	assert.False(t, CanTransition("BOGUS", StatusOnRoute))
}

func TestJustificationRequired(t *testing.T) {
	assert.False(t, JustificationRequired(500, 500, ""), "lowest bid needs no memo")
	assert.False(t, JustificationRequired(400, 500, ""), "below lowest needs no memo")

	assert.True(t, JustificationRequired(600, 500, ""))
	assert.True(t, JustificationRequired(600, 500, "too short"))
	assert.True(t, JustificationRequired(600, 500, "         padded      "), "whitespace does not count")

	assert.False(t, JustificationRequired(600, 500, "agent is closest to the restaurant"))
	assert.False(t, JustificationRequired(600, 500, "1234567890"), "exactly ten characters passes")
}

func TestLowestAmount(t *testing.T) {
	bids := []Bid{
		{AgentID: "a", Amount: 700},
		{AgentID: "b", Amount: 450},
		{AgentID: "c", Amount: 900},
	}
	assert.Equal(t, int64(450), LowestAmount(bids))
	assert.Equal(t, int64(700), LowestAmount(bids[:1]))
}
