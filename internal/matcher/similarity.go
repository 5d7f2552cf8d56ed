package matcher

// DefaultSpellingThreshold is the minimum similarity for a correction.
const DefaultSpellingThreshold = 0.8

// Similarity is the normalized indel similarity of a and b:
// 2*LCS / (len(a)+len(b)), in [0, 1].
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return float64(2*lcsLength(ra, rb)) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// CorrectSpelling replaces word with the closest vocabulary entry when that
// entry scores at least threshold. The first entry wins ties.
func CorrectSpelling(word string, vocabulary []string, threshold float64) string {
	best := word
	bestScore := 0.0
	for _, candidate := range vocabulary {
		if score := Similarity(word, candidate); score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore >= threshold {
		return best
	}
	return word
}
