package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeight(t *testing.T) {
	assert.Equal(t, 1, Weight(false))
	assert.Equal(t, 2, Weight(true))
}

func TestDemotionDue(t *testing.T) {
	assert.False(t, DemotionDue(2))
	assert.True(t, DemotionDue(3))
	assert.True(t, DemotionDue(4))
}

func TestDeregistrationDue(t *testing.T) {
	assert.False(t, DeregistrationDue(2))
	assert.True(t, DeregistrationDue(3))
}

func TestVIPRevocationDue(t *testing.T) {
	assert.False(t, VIPRevocationDue(false, 5), "non-vip has no status to lose")
	assert.False(t, VIPRevocationDue(true, 1))
	assert.True(t, VIPRevocationDue(true, 2))
	assert.True(t, VIPRevocationDue(true, 3))
}

func TestBonusDue(t *testing.T) {
	assert.False(t, BonusDue(0))
	assert.False(t, BonusDue(1))
	assert.False(t, BonusDue(2))
	assert.True(t, BonusDue(3))
	assert.False(t, BonusDue(4))
	assert.True(t, BonusDue(6))
	assert.True(t, BonusDue(9))
}
