package core

// gstFraction extracts the GST component of a GST-inclusive amount at the
// Australian 10% rate. The result is not rounded.
func gstFraction(amount float64) float64 {
	return amount / 11
}

// GSTComponent returns the tax portion of amount for the given supplier.
// Unregistered suppliers charge no GST.
func GSTComponent(amount float64, registered bool) float64 {
	if !registered {
		return 0
	}
	return gstFraction(amount)
}

// ExGST returns amount with its GST component removed.
func ExGST(amount float64, registered bool) float64 {
	return amount - GSTComponent(amount, registered)
}
