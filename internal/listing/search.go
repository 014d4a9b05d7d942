package listing

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/dukerupert/citievents/internal/model"
)

// DefaultThreshold accepts matches whose edit distance is at most 40% of
// the compared length.
const DefaultThreshold = 0.4

// Result is a search hit; lower Score is better, 0 is exact.
type Result struct {
	Item  model.Item `json:"item"`
	Score float64    `json:"score"`
}

// Search fuzzy-matches query against item titles and descriptions. A field
// is scored as a whole and by every run of consecutive words as long as the
// query, so a short query can match inside a long description.
func Search(items []model.Item, query string, threshold float64) []Result {
	fold := cases.Fold()
	q := strings.Join(strings.Fields(fold.String(query)), " ")
	if q == "" {
		return nil
	}
	qWords := len(strings.Fields(q))

	var out []Result
	for _, it := range items {
		best := 1.0
		for _, field := range []string{it.Title, it.Description} {
			if s := fieldScore(fold.String(field), q, qWords); s < best {
				best = s
			}
		}
		if best <= threshold {
			out = append(out, Result{Item: it, Score: best})
		}
	}

	slices.SortStableFunc(out, func(a, b Result) int {
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return compareDates(a.Item.Date, b.Item.Date)
	})
	return out
}

func fieldScore(field, q string, qWords int) float64 {
	words := strings.Fields(field)
	if len(words) == 0 {
		return 1
	}
	whole := strings.Join(words, " ")
	if strings.Contains(whole, q) {
		return 0
	}

	best := distance(whole, q)
	for i := 0; i+qWords <= len(words); i++ {
		if s := distance(strings.Join(words[i:i+qWords], " "), q); s < best {
			best = s
		}
	}
	return best
}

// distance is the edit distance normalised by the longer string.
func distance(a, b string) float64 {
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(n)
}
