package memory

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// fingerprintDim is the hashed term-vector width. Wide enough that distinct
// situations rarely collide on every bucket, small enough to store inline.
const fingerprintDim = 256

// Fingerprint hashes a situation description into a normalized term vector.
// Deterministic, so a record scores identically across process restarts.
func Fingerprint(text string) []float64 {
	vec := make([]float64, fingerprintDim)

	for _, term := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[h.Sum32()%fingerprintDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Cosine returns the similarity of two fingerprints in [0,1]. Term counts are
// non-negative, so the raw cosine already lands in that interval.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}

func tokenize(text string) []string {
	var terms []string
	var current strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 2 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}
	if current.Len() > 2 {
		terms = append(terms, current.String())
	}
	return terms
}
