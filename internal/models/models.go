package models

// All lists every table, parents first.
func All() []any {
	return []any{
		&Category{},
		&Subcategory{},
		&Product{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderStatusChange{},
	}
}
