package repo

// upsert replaces the element with the same id or appends item.
func upsert[T any](items []T, item T, id func(T) string) []T {
	key := id(item)
	for i := range items {
		if id(items[i]) == key {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

// remove drops every element with the given id and reports whether any matched.
func remove[T any](items []T, key string, id func(T) string) ([]T, bool) {
	out := items[:0]
	found := false
	for _, it := range items {
		if id(it) == key {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}
