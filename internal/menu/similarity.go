package menu

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio is the normalized Levenshtein similarity of a and b in [0,100].
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// PartialRatio scores the shorter string against its best-matching window of
// the longer one.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) == len(long) {
		return Ratio(a, b)
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		score := Ratio(s, string(long[i:i+len(short)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares a and b after sorting their words.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared words of a and b against each side's
// remainder. A string whose words are all contained in the other scores 100.
func TokenSetRatio(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var inter, diffAB, diffBA []string
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter = append(inter, w)
		} else {
			diffAB = append(diffAB, w)
		}
	}
	for w := range setB {
		if _, ok := setA[w]; !ok {
			diffBA = append(diffBA, w)
		}
	}
	if len(inter) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sort.Strings(inter)
	sort.Strings(diffAB)
	sort.Strings(diffBA)

	sect := strings.Join(inter, " ")
	combAB := strings.TrimSpace(sect + " " + strings.Join(diffAB, " "))
	combBA := strings.TrimSpace(sect + " " + strings.Join(diffBA, " "))

	return max(Ratio(sect, combAB), Ratio(sect, combBA), Ratio(combAB, combBA))
}

// minFuzzyWindow is the shortest string that may match a window of a longer
// one approximately. Shorter strings must appear verbatim.
const minFuzzyWindow = 4

// WeightedRatio blends the ratios above the way a human would judge a match.
// Inputs should already be normalized. Strings of similar length are
// compared whole; when one is much longer the partial ratio dominates and
// is discounted as the length gap grows.
func WeightedRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	base := Ratio(a, b)
	la, lb := float64(utf8.RuneCountInString(a)), float64(utf8.RuneCountInString(b))
	lenRatio := max(la, lb) / min(la, lb)

	const tokenScale = 0.95
	if lenRatio < 1.5 {
		return max(base, TokenSortRatio(a, b)*tokenScale, TokenSetRatio(a, b)*tokenScale)
	}

	partialScale := 0.9
	if lenRatio > 8 {
		partialScale = 0.6
	}
	partial := PartialRatio(a, b)
	if min(la, lb) < minFuzzyWindow && partial < 100 {
		partial = 0
	}
	partial *= partialScale
	tok := TokenSetRatio(a, b) * tokenScale * partialScale

	return max(base, partial, tok)
}

func sortedTokens(s string) string {
	words := tokens(s)
	sort.Strings(words)
	return strings.Join(words, " ")
}

func tokenSet(s string) map[string]struct{} {
	words := tokens(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
