package domain

// ShoppingListItem is one aggregated line of the downloadable shopping list:
// the summed amount of an ingredient across every recipe in the user's cart,
// grouped by (name, measurement unit).
type ShoppingListItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}
