package core

import "strings"

// BrainClass is the discrete label emitted by the classifier for one EEG
// window (spec GLOSSARY).
type BrainClass string

const (
	ClassLeftFist  BrainClass = "LeftFist"
	ClassRightFist BrainClass = "RightFist"
	ClassBothFists BrainClass = "BothFists"
	ClassTongueTap BrainClass = "TongueTap"
	ClassRelax     BrainClass = "Relax"
	ClassNone      BrainClass = ""
)

// IsActive reports whether a class represents an engaged gesture class
// rather than rest/no-signal.
func (c BrainClass) IsActive() bool {
	switch c {
	case ClassLeftFist, ClassRightFist, ClassBothFists, ClassTongueTap:
		return true
	default:
		return false
	}
}

// typoAliases normalizes the two known typo-form labels the classifier is
// documented to occasionally emit (spec §4.3 "Typo-form brain labels").
var typoAliases = map[string]BrainClass{
	"bothfist":   ClassBothFists,
	"tounge_tap": ClassTongueTap,
}

// NormalizeBrainClass canonicalizes a raw label, folding known typo forms
// into their canonical BrainClass. Unknown labels pass through unchanged
// so callers can still detect and gate on them.
func NormalizeBrainClass(raw string) BrainClass {
	trimmed := strings.TrimSpace(raw)
	if canon, ok := typoAliases[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return BrainClass(trimmed)
}
