package intent

import (
	"fmt"

	"supportdesk/internal/utils"
)

// Default confidences for messages no tier matched
const (
	defaultConfidence      = 0.5
	shortMessageConfidence = 0.3
	shortMessageRunes      = 5
)

// Classifier maps message text to an intent. It holds no mutable state and is
// safe for concurrent use.
type Classifier struct {
	set *PatternSet
}

// NewClassifier creates a classifier over a compiled pattern set
func NewClassifier(set *PatternSet) *Classifier {
	return &Classifier{set: set}
}

// Classify returns the intent of the first tier that matches. Tiers are tried
// in order and every locale variant of a tier is tried before the next tier.
func (c *Classifier) Classify(text string) Result {
	normalized := utils.NormalizeText(text)

	if normalized != "" {
		for _, tier := range c.set.Tiers {
			for _, locale := range c.set.Locales {
				re, ok := tier.compiled[locale]
				if !ok || !re.MatchString(normalized) {
					continue
				}
				return Result{
					Intent:     tier.Intent,
					Confidence: tier.Confidence,
					Reason:     fmt.Sprintf("matched %s pattern (%s)", tier.Name, locale),
					Tier:       tier.Name,
					Locale:     locale,
				}
			}
		}
	}

	if utils.RuneLength(text) >= shortMessageRunes {
		return Result{
			Intent:     FactualKB,
			Confidence: defaultConfidence,
			Reason:     "no pattern matched, treating as knowledge query",
			Tier:       TierDefault,
		}
	}
	return Result{
		Intent:     FactualKB,
		Confidence: shortMessageConfidence,
		Reason:     "short unclassified message",
		Tier:       TierDefault,
	}
}
