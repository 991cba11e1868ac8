package speaker

import "math"

// Dim is the embedding dimension produced by the WeSpeaker ECAPA-TDNN
// model. Every stored voice print carries a vector of exactly this length.
const Dim = 192

// Embedding is a fixed-length vector summarizing voiceprint-relevant
// features of an audio sample.
type Embedding []float32

// Cosine returns the cosine similarity of a and b in [-1, 1]. Mismatched
// lengths or zero vectors yield 0.
func Cosine(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Normalize scales e to unit L2 norm in place. Zero vectors are left
// untouched.
func Normalize(e Embedding) {
	var sum float64
	for _, v := range e {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range e {
		e[i] = float32(float64(e[i]) / norm)
	}
}

// Centroid computes the component-wise mean of the unit-normalized inputs
// and re-normalizes the result. Returns nil for empty input.
func Centroid(embs []Embedding) Embedding {
	if len(embs) == 0 {
		return nil
	}
	dim := len(embs[0])
	acc := make([]float64, dim)
	for _, e := range embs {
		unit := make(Embedding, len(e))
		copy(unit, e)
		Normalize(unit)
		for i, v := range unit {
			acc[i] += float64(v)
		}
	}
	out := make(Embedding, dim)
	for i, v := range acc {
		out[i] = float32(v / float64(len(embs)))
	}
	Normalize(out)
	return out
}

// minPairwiseCosine returns the smallest cosine similarity over all pairs.
// Fewer than two embeddings trivially agree (returns 1).
func minPairwiseCosine(embs []Embedding) float64 {
	if len(embs) < 2 {
		return 1
	}
	min := 1.0
	for i := 0; i < len(embs); i++ {
		for j := i + 1; j < len(embs); j++ {
			if sim := Cosine(embs[i], embs[j]); sim < min {
				min = sim
			}
		}
	}
	return min
}
