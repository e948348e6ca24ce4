package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeQuoteRegular(t *testing.T) {
	q := ComputeQuote(4000, false, 7)
	assert.Equal(t, int64(4000), q.Subtotal)
	assert.Equal(t, int64(0), q.Discount)
	assert.Equal(t, int64(4000), q.Total)
	assert.False(t, q.FreeDelivery)
}

func TestComputeQuoteVIPDiscount(t *testing.T) {
	q := ComputeQuote(4000, true, 0)
	assert.Equal(t, int64(200), q.Discount)
	assert.Equal(t, int64(3800), q.Total)
	assert.False(t, q.FreeDelivery)
}

func TestComputeQuoteVIPFreeDeliveryCycle(t *testing.T) {
	// Free delivery lands when the completed count sits at 2 mod 3.
	for completed := 0; completed < 9; completed++ {
		q := ComputeQuote(1000, true, completed)
		assert.Equal(t, completed%3 == 2, q.FreeDelivery, "completed=%d", completed)
	}
}

func TestComputeQuoteNonVIPNeverFreeDelivery(t *testing.T) {
	q := ComputeQuote(1000, false, 2)
	assert.False(t, q.FreeDelivery)
	assert.Equal(t, int64(1000), q.Total)
}

func TestComputeQuoteDiscountRoundsDown(t *testing.T) {
	q := ComputeQuote(99, true, 0)
	assert.Equal(t, int64(4), q.Discount)
	assert.Equal(t, int64(95), q.Total)
}

func TestPromotionDue(t *testing.T) {
	cases := []struct {
		name              string
		isVIP             bool
		spent             int64
		orders            int
		pendingComplaints int
		want              bool
	}{
		{"qualifies", false, 100_01, 3, 0, true},
		{"already vip", true, 500_00, 10, 0, false},
		{"spend exactly at threshold", false, 100_00, 3, 0, false},
		{"too few orders", false, 200_00, 2, 0, false},
		{"pending complaint blocks", false, 200_00, 5, 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PromotionDue(tc.isVIP, tc.spent, tc.orders, tc.pendingComplaints))
		})
	}
}

func TestSuspended(t *testing.T) {
	assert.False(t, Suspended(0))
	assert.False(t, Suspended(2))
	assert.True(t, Suspended(3))
	assert.True(t, Suspended(5))
}
