package intent

import (
	"supportdesk/internal/utils"
)

// Trigger is a detected escalation signal
type Trigger struct {
	Category string
	Locale   string
}

// TriggerDetector scans messages for anger, urgency, legal or refund phrases.
// It runs independently of the classifier.
type TriggerDetector struct {
	set *PatternSet
}

// NewTriggerDetector creates a detector over a compiled pattern set
func NewTriggerDetector(set *PatternSet) *TriggerDetector {
	return &TriggerDetector{set: set}
}

// Detect returns the first trigger category found in text
func (d *TriggerDetector) Detect(text string) (Trigger, bool) {
	normalized := utils.NormalizeText(text)
	if normalized == "" {
		return Trigger{}, false
	}

	for _, group := range d.set.Triggers {
		for _, locale := range d.set.Locales {
			re, ok := group.compiled[locale]
			if ok && re.MatchString(normalized) {
				return Trigger{Category: group.Category, Locale: locale}, true
			}
		}
	}
	return Trigger{}, false
}

// HasEscalationTrigger reports whether text must be escalated immediately
func (d *TriggerDetector) HasEscalationTrigger(text string) bool {
	_, ok := d.Detect(text)
	return ok
}
