package detect

// Ratio returns the normalized indel similarity of a and b on a 0-100 scale:
// 100 * (1 - indel/(len(a)+len(b))), with lengths counted in runes.
// Two empty strings are identical (100).
func Ratio(a, b string) float64 {
	return ratio([]rune(a), []rune(b))
}

// PartialRatio scores how well the shorter string matches its best aligned
// window inside the longer one, on a 0-100 scale. Windows that hang off
// either end of the longer string are considered too, so a needle matching
// only a prefix or suffix still scores.
func PartialRatio(a, b string) float64 {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 || len(s2) == 0 {
		if len(s1) == len(s2) {
			return 100
		}
		return 0
	}

	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}

	best := partialWindows(s1, s2)
	if len(s1) == len(s2) && best < 100 {
		if alt := partialWindows(s2, s1); alt > best {
			best = alt
		}
	}
	return best
}

// partialWindows slides needle across hay. len(needle) <= len(hay).
func partialWindows(needle, hay []rune) float64 {
	m, n := len(needle), len(hay)
	best := 0.0

	consider := func(window []rune) bool {
		if score := ratio(needle, window); score > best {
			best = score
		}
		return best == 100
	}

	// Full-width windows first: an exact hit ends the search.
	for i := 0; i+m <= n; i++ {
		if consider(hay[i : i+m]) {
			return best
		}
	}
	// Windows clipped at the left edge.
	for i := 1; i < m; i++ {
		if consider(hay[:i]) {
			return best
		}
	}
	// Windows clipped at the right edge.
	for i := n - m + 1; i < n; i++ {
		if consider(hay[i:]) {
			return best
		}
	}
	return best
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	lcs := lcsLength(a, b)
	indel := total - 2*lcs
	return 100 * (1 - float64(indel)/float64(total))
}

// lcsLength is the longest common subsequence length using two DP rows.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
