package speaker

// DefaultThreshold is the stock cosine-similarity floor for a positive
// identification. Product-tunable via configuration, not an invariant.
const DefaultThreshold = 0.70

// Match is the outcome of one recognition query. When Identified is false,
// ID and Name are zero and Similarity still carries the best score seen
// (zero for an empty registry).
type Match struct {
	ID         int64   `json:"id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Similarity float64 `json:"similarity"`
	Identified bool    `json:"identified"`
}

// Matcher scores a probe embedding against registry entries. The scan is
// linear: registries hold tens of users, so no index is warranted, but the
// contract (probe in, best match out) leaves room to swap in an ANN
// structure without changing callers.
type Matcher struct {
	Threshold float64
}

// NewMatcher creates a matcher; a non-positive threshold falls back to
// DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{Threshold: threshold}
}

// Match compares the probe against every active voice print and returns the
// best-scoring entry when it clears the threshold. Exact similarity ties
// break to the lowest ID, so results are stable across runs. An empty
// registry is not an error: it yields an unidentified match.
func (m *Matcher) Match(probe Embedding, prints []VoicePrint) Match {
	var (
		found bool
		best  Match
	)
	for _, vp := range prints {
		if !vp.Active {
			continue
		}
		sim := Cosine(probe, vp.Embedding)
		better := !found || sim > best.Similarity ||
			(sim == best.Similarity && vp.ID < best.ID)
		if better {
			found = true
			best = Match{ID: vp.ID, Name: vp.Name, Similarity: sim, Identified: true}
		}
	}
	if !found || best.Similarity < m.Threshold {
		return Match{Similarity: best.Similarity}
	}
	return best
}
