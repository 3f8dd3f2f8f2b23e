package chat

// RoomID derives the deterministic identity of the two-party room: the
// participants' uids sorted lexicographically and joined with an
// underscore. Both sides compute the same id independently, so a room
// is never duplicated regardless of who initiates.
func RoomID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// SharedInterests returns the elements of mine that also appear in
// theirs, in mine's order. Matching is exact and case-sensitive.
func SharedInterests(mine, theirs []string) []string {
	other := make(map[string]struct{}, len(theirs))
	for _, interest := range theirs {
		other[interest] = struct{}{}
	}

	var shared []string
	for _, interest := range mine {
		if _, ok := other[interest]; ok {
			shared = append(shared, interest)
		}
	}
	return shared
}
