package speaker

import (
	"context"

	"go.uber.org/zap"
)

// Identifier is the extract -> match -> touch path run once per finalized
// utterance. It degrades rather than fails: extraction errors and unknown
// speakers both come back as an unidentified Match, so recognition can
// never block a transcription.
type Identifier struct {
	extractor Extractor
	registry  *Registry
	matcher   *Matcher
	log       *zap.Logger
}

// NewIdentifier wires the recognition path.
func NewIdentifier(extractor Extractor, registry *Registry, matcher *Matcher, log *zap.Logger) *Identifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Identifier{extractor: extractor, registry: registry, matcher: matcher, log: log}
}

// Identify extracts the probe embedding and scores it against the active
// voice prints. On identification the matched print's stats are updated.
// Extraction failures return the error alongside an unidentified Match so
// callers can log the cause and proceed.
func (id *Identifier) Identify(ctx context.Context, samples []float32) (Match, error) {
	probe, err := id.extractor.Extract(ctx, samples)
	if err != nil {
		return Match{}, err
	}

	match := id.matcher.Match(probe, id.registry.active())
	if !match.Identified {
		id.log.Debug("speaker not recognized", zap.Float64("best_similarity", match.Similarity))
		return match, nil
	}

	if err := id.registry.Touch(match.ID); err != nil {
		// The identification itself stands; only the stats write failed.
		id.log.Warn("recognition stats update failed",
			zap.Int64("id", match.ID), zap.Error(err))
	}
	id.log.Info("speaker identified",
		zap.Int64("id", match.ID),
		zap.String("name", match.Name),
		zap.Float64("similarity", match.Similarity))
	return match, nil
}
