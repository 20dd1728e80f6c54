package harvest

import (
	"encoding/json"
	"fmt"
)

// Query holds the parameters of one harvest slice. Partition strategies
// rewrite StartDate/EndDate on their own copy; everything else passes
// through to the forge untouched.
type Query struct {
	Token     string
	StartDate string
	EndDate   string

	// Extra carries API-specific parameters this package does not interpret
	// (search terms, account lists, sort order).
	Extra map[string]string
}

// Forge materializes a query into an absolute URL. It must be pure:
// identical queries forge identical URLs.
type Forge func(q Query) string

// Item is one decoded result object. The harvest core does not know its
// schema; identifiers and dates are extracted through accessor functions.
type Item map[string]any

// ItemID extracts the dedup identifier from an item.
type ItemID func(item Item) string

// DefaultItemID reads the item's "id" field, tolerating string and numeric
// shapes.
func DefaultItemID(item Item) string {
	switch id := item["id"].(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// itemDate reads the item's "date" field, used by the limit strategy to
// narrow the next query to the last item seen.
func itemDate(item Item) string {
	date, _ := item["date"].(string)
	return date
}
