package models

// EventCatalogItem is a read-only row of the festival event catalog as
// served by the backend. Price stays a display string ("₹2,999", "Free");
// parsing happens in the pricing calculator.
type EventCatalogItem struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Price    string  `json:"price"`
	TeamSize *string `json:"team_size,omitempty"`
	Flagship bool    `json:"flagship,omitempty"`
}

type Catalog []EventCatalogItem

func (c Catalog) ByID(id uint) (EventCatalogItem, bool) {
	for _, ev := range c {
		if ev.ID == id {
			return ev, true
		}
	}
	return EventCatalogItem{}, false
}

// Select returns the catalog items for the given ids, preserving the order
// of ids and skipping any id absent from the catalog.
func (c Catalog) Select(ids []uint) []EventCatalogItem {
	out := make([]EventCatalogItem, 0, len(ids))
	for _, id := range ids {
		if ev, ok := c.ByID(id); ok {
			out = append(out, ev)
		}
	}
	return out
}
