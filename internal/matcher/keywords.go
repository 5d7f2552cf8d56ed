package matcher

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultTopKeywords is how many job keywords are kept when none is configured.
const DefaultTopKeywords = 12

// termPattern is a run of two or more Unicode word characters.
var termPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// Vectorizer computes TF-IDF weights with smoothed idf and l2-normalized
// rows.
type Vectorizer struct {
	vocabulary []string
	idf        map[string]float64
	counts     []map[string]int
}

// Fit builds the vocabulary and idf table from docs.
func Fit(docs []string) *Vectorizer {
	v := &Vectorizer{idf: make(map[string]float64)}
	df := make(map[string]int)

	for _, doc := range docs {
		counts := termCounts(doc)
		v.counts = append(v.counts, counts)
		for term := range counts {
			df[term]++
		}
	}

	n := float64(len(docs))
	for term, freq := range df {
		v.vocabulary = append(v.vocabulary, term)
		v.idf[term] = math.Log((1+n)/(1+float64(freq))) + 1
	}
	sort.Strings(v.vocabulary)
	return v
}

// Weights returns the normalized TF-IDF weights of document i.
func (v *Vectorizer) Weights(i int) map[string]float64 {
	if i < 0 || i >= len(v.counts) {
		return nil
	}
	weights := make(map[string]float64, len(v.counts[i]))
	var norm float64
	for term, c := range v.counts[i] {
		w := float64(c) * v.idf[term]
		weights[term] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for term := range weights {
			weights[term] /= norm
		}
	}
	return weights
}

// Top returns the n highest weighted terms of document i. Equal weights
// keep vocabulary (alphabetical) order.
func (v *Vectorizer) Top(i, n int) []string {
	weights := v.Weights(i)
	terms := make([]string, 0, len(weights))
	for _, term := range v.vocabulary {
		if _, ok := weights[term]; ok {
			terms = append(terms, term)
		}
	}
	sort.SliceStable(terms, func(a, b int) bool {
		return weights[terms[a]] > weights[terms[b]]
	})
	if n >= 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// ExtractKeywords returns the topN TF-IDF terms of a single document.
func ExtractKeywords(text string, topN int) []string {
	return Fit([]string{text}).Top(0, topN)
}

func termCounts(doc string) map[string]int {
	counts := make(map[string]int)
	for _, term := range termPattern.FindAllString(strings.ToLower(doc), -1) {
		if _, stop := vectorizerStopWords[term]; stop {
			continue
		}
		counts[term]++
	}
	return counts
}
