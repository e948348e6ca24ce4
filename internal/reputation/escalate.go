package reputation

// Complaint and compliment categories.
const (
	CategoryChef     = "CHEF"
	CategoryDelivery = "DELIVERY"
	CategoryCustomer = "CUSTOMER"
)

// Complaint statuses.
const (
	ComplaintPending   = "PENDING"
	ComplaintUpheld    = "UPHOLD"
	ComplaintDismissed = "DISMISS"
	ComplaintCancelled = "CANCELLED"
)

// Standing thresholds.
const (
	// Upheld complaints of one category before the employee demotion hook fires.
	demotionThreshold = 3
	// Accumulated warnings before a customer account is deregistered.
	deregistrationThreshold = 3
	// A VIP with this many warnings loses VIP status.
	vipWarningLimit = 2
	// A compliment category bonus fires on every third compliment received.
	complimentBonusEvery = 3

	minComplaintDescription = 20
)

// Weight is the scoring weight of a complaint or compliment: VIP filers
// count double.
func Weight(filerIsVIP bool) int {
	if filerIsVIP {
		return 2
	}
	return 1
}

// DemotionDue reports whether an employee's upheld complaint count for one
// category has reached the demotion threshold.
func DemotionDue(upheldCount int) bool {
	return upheldCount >= demotionThreshold
}

// DeregistrationDue reports whether a warning count forces deregistration.
func DeregistrationDue(warnings int) bool {
	return warnings >= deregistrationThreshold
}

// VIPRevocationDue reports whether a VIP customer's warnings cost them VIP
// status.
func VIPRevocationDue(isVIP bool, warnings int) bool {
	return isVIP && warnings >= vipWarningLimit
}

// BonusDue reports whether a compliment count, taken after insertion,
// triggers the category bonus hook. Fires at 3, 6, 9, ...
func BonusDue(count int) bool {
	return count > 0 && count%complimentBonusEvery == 0
}
