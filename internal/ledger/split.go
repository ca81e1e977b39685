package ledger

// CommissionRateBP is the platform's fixed cut in basis points (15%).
const CommissionRateBP = 1500

// Commission returns the platform's cut of a payment in pence,
// rounded half-up. Implemented in integer arithmetic so
// commission + tradie amount always reconstructs the payment exactly.
func Commission(amountPence int64) int64 {
	return (amountPence*CommissionRateBP + 5000) / 10000
}

// Split divides a payment into the platform commission and the
// tradie's share.
func Split(amountPence int64) (commission, tradieAmount int64) {
	commission = Commission(amountPence)
	return commission, amountPence - commission
}
