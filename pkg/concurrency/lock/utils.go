package lock

// addToSet inserts v into the set stored under key, creating it if needed.
func addToSet[K, V comparable](m map[K]map[V]struct{}, key K, v V) {
	set, ok := m[key]
	if !ok {
		set = make(map[V]struct{})
		m[key] = set
	}
	set[v] = struct{}{}
}

// removeFromSet deletes v from the set under key and prunes the set when it
// becomes empty, keeping the maps free of empty entries.
func removeFromSet[K, V comparable](m map[K]map[V]struct{}, key K, v V) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, v)
	if len(set) == 0 {
		delete(m, key)
	}
}
