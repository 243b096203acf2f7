// Package inventory is the single source of truth for which collections can
// contain user data. Both the statistics path and the deletion path consume
// this list; keep it in sync with the schema of every collection that
// references users.
package inventory

// Relation describes how a collection references a user.
type Relation string

const (
	// KeyedByUser means the record's primary key is the user identifier
	// itself; at most one record per user.
	KeyedByUser Relation = "keyed-by-userId"
	// FieldReference means zero or more records carry a userId field.
	FieldReference Relation = "fieldReferences-userId"
)

// Entry is one collection known to hold user data.
type Entry struct {
	Name     string
	Relation Relation
}

// UserIDField is the document field carrying the user reference in
// FieldReference collections.
const UserIDField = "userId"

// Collection names. Settings is the keyed, settings-like collection whose
// attributes win during identity reconciliation.
const (
	Settings      = "user_settings"
	Items         = "items"
	ShoppingLists = "shopping_lists"
	Logins        = "logins"
	Dashboards    = "dashboards"
	UsageLogs     = "usage_logs"
)

// Default returns the full inventory in the fixed scan order used for
// deterministic attribute precedence. The keyed settings collection comes
// first.
func Default() []Entry {
	return []Entry{
		{Name: Settings, Relation: KeyedByUser},
		{Name: Items, Relation: FieldReference},
		{Name: ShoppingLists, Relation: FieldReference},
		{Name: Logins, Relation: FieldReference},
		{Name: Dashboards, Relation: FieldReference},
		{Name: UsageLogs, Relation: FieldReference},
	}
}

// Names returns the collection names in inventory order.
func Names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}
