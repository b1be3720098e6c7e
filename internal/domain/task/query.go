package task

import "strings"

// ListFilter narrows ListByUser. Nil fields are not applied.
type ListFilter struct {
	Status   *Status
	Priority *Priority
	Category *string
}

type OrderField string

const (
	OrderCreatedAt OrderField = "createdAt"
	OrderDueDate   OrderField = "dueDate"
	OrderPriority  OrderField = "priority"
	OrderTitle     OrderField = "title"
)

type Ordering struct {
	Field OrderField
	Desc  bool
}

// DefaultOrdering is newest first.
var DefaultOrdering = Ordering{Field: OrderCreatedAt, Desc: true}

// ParseOrdering maps the orderBy/orderDirection query values onto the
// allow-list. A known field without a direction sorts ascending; anything
// outside the allow-list yields DefaultOrdering.
func ParseOrdering(field, direction string) Ordering {
	if field == "" {
		return DefaultOrdering
	}

	f := OrderField(field)
	switch f {
	case OrderCreatedAt, OrderDueDate, OrderPriority, OrderTitle:
	default:
		return DefaultOrdering
	}

	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "asc":
		return Ordering{Field: f}
	case "desc":
		return Ordering{Field: f, Desc: true}
	default:
		return DefaultOrdering
	}
}
