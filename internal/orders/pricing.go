package orders

// Pricing policy constants.
const (
	vipDiscountPercent = 5
	// VIP promotion requires lifetime spend above $100 and at least 3 orders.
	vipSpendThreshold = 100_00
	vipOrderThreshold = 3
	// Suspension kicks in at this many accumulated warnings.
	suspensionThreshold = 3
)

// Quote is the priced result of a cart at placement time.
type Quote struct {
	Subtotal     int64
	Discount     int64
	Total        int64
	FreeDelivery bool
}

// ComputeQuote prices a cart. VIP customers get a 5% discount, and every
// third completed VIP order (completed % 3 == 2 at placement time) ships free.
// The modulus is deliberate and matches long-standing billing behavior.
func ComputeQuote(subtotal int64, isVIP bool, completedOrders int) Quote {
	q := Quote{Subtotal: subtotal}
	if isVIP {
		q.Discount = subtotal * vipDiscountPercent / 100
		if completedOrders%3 == 2 {
			q.FreeDelivery = true
		}
	}
	q.Total = q.Subtotal - q.Discount
	return q
}

// PromotionDue reports whether a customer qualifies for one-way VIP promotion:
// non-VIP, spend and order thresholds met, and no pending complaints against
// them.
func PromotionDue(isVIP bool, spent int64, ordersCount, pendingComplaints int) bool {
	if isVIP {
		return false
	}
	return spent > vipSpendThreshold && ordersCount >= vipOrderThreshold && pendingComplaints == 0
}

// Suspended reports whether the warning count blocks order placement.
func Suspended(warnings int) bool {
	return warnings >= suspensionThreshold
}
