package models

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// statusTransitions is the full set of legal status moves, keyed by the
// current status. A status absent from a slice is an illegal target.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {StatusRefunded},
	StatusRefunded:   {}, // terminal
}

func (s Status) String() string { return string(s) }

// IsValid reports whether s is one of the known order statuses.
func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ReleasesInventory reports whether entering s returns reserved stock to the
// catalog.
func (s Status) ReleasesInventory() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// ReleaseInventoryIfNeeded decides whether a status move requires returning
// stock to the catalog. It is the single release rule shared by the update and
// delete paths: release happens the first time an order enters a releasing
// status, and never again once alreadyReleased is set.
func ReleaseInventoryIfNeeded(prev, next Status, alreadyReleased bool) bool {
	if alreadyReleased {
		return false
	}
	return !prev.ReleasesInventory() && next.ReleasesInventory()
}

// PaymentStatus tracks the payment side of an order. Payments themselves are
// processed elsewhere; only the outcome is recorded here.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsValid reports whether s is one of the known payment statuses.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the customer chose to pay.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cod"
)

// IsValid reports whether m is one of the supported payment methods.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}
