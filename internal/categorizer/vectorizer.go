package categorizer

import (
	"math"
	"sort"
)

// feature is one non-zero entry of a sparse document vector.
type feature struct {
	index int
	value float64
}

// vectorizer maps term lists to L2-normalized TF-IDF vectors over a fixed
// vocabulary. Terms outside the vocabulary are dropped.
type vectorizer struct {
	vocabulary []string
	index      map[string]int
	idf        []float64
}

// fitVectorizer builds the vocabulary from docs. At most maxFeatures terms
// are kept, chosen by corpus frequency with ties broken lexicographically;
// the retained vocabulary is stored in lexicographic order.
func fitVectorizer(docs [][]string, maxFeatures int) *vectorizer {
	freq := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			freq[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return newVectorizer(terms, idf)
}

func newVectorizer(vocabulary []string, idf []float64) *vectorizer {
	index := make(map[string]int, len(vocabulary))
	for i, term := range vocabulary {
		index[term] = i
	}
	return &vectorizer{vocabulary: vocabulary, index: index, idf: idf}
}

// transform returns the sparse vector of terms sorted by feature index.
func (v *vectorizer) transform(terms []string) []feature {
	counts := make(map[int]float64, len(terms))
	for _, term := range terms {
		if idx, ok := v.index[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	features := make([]feature, 0, len(counts))
	var norm float64
	for idx, count := range counts {
		val := count * v.idf[idx]
		norm += val * val
		features = append(features, feature{index: idx, value: val})
	}
	sort.Slice(features, func(i, j int) bool { return features[i].index < features[j].index })

	norm = math.Sqrt(norm)
	for i := range features {
		features[i].value /= norm
	}
	return features
}
