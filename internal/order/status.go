package order

// next holds the single forward step allowed from each active status.
var next = map[OrderStatus]OrderStatus{
	StatusPending:   StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition allows exactly one forward step, or cancellation from any
// non-terminal status.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() || !to.Valid() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return next[from] == to
}
