package cache

// Glob grammar used for pattern invalidation:
//
//   *  matches any run of characters, including the empty run
//   ?  matches exactly one character
//
// Every other character matches itself. The grammar is owned by this
// package so invalidation behavior does not depend on stdlib path
// matching quirks (no character classes, no escaping).

// ValidatePattern checks a glob pattern for caller errors.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return ErrBadPattern
	}
	return nil
}

// MatchPattern reports whether name matches the glob pattern.
// Uses the classic two-pointer backtracking match: on mismatch after a
// star, the star absorbs one more character and matching resumes.
func MatchPattern(pattern, name string) bool {
	px, nx := 0, 0
	starPx, starNx := -1, 0

	for nx < len(name) {
		switch {
		case px < len(pattern) && (pattern[px] == '?' || pattern[px] == name[nx]):
			px++
			nx++
		case px < len(pattern) && pattern[px] == '*':
			starPx, starNx = px, nx
			px++
		case starPx >= 0:
			px = starPx + 1
			starNx++
			nx = starNx
		default:
			return false
		}
	}

	// Only trailing stars may remain in the pattern.
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}
