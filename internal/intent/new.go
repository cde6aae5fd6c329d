package intent

import (
	"fmt"

	"github.com/kalambet/moara/internal/engine"
)

// Classifier backends accepted by New.
const (
	BackendKeywords   = "keywords"
	BackendGenerative = "generative"
)

// New selects the classifier once at startup. The generative classifier
// needs a backend; with none it falls back to keywords.
func New(kind string, b engine.Backend) (Classifier, error) {
	switch kind {
	case "", BackendKeywords:
		return KeywordClassifier{}, nil
	case BackendGenerative:
		if _, none := b.(engine.Unavailable); b == nil || none {
			return KeywordClassifier{}, nil
		}
		return NewBackendClassifier(b), nil
	}
	return nil, fmt.Errorf("unknown classifier backend %q", kind)
}
