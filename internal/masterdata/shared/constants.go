package shared

const (
	// DefaultUnit is the unit of measure assigned when none is supplied.
	DefaultUnit = "pcs"
	// DefaultLowStockThreshold is the alert threshold assigned when none is supplied.
	DefaultLowStockThreshold int64 = 10
)
