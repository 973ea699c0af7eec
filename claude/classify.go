package claude

import "strings"

// ResultClass categorizes the free-text body of a result message.
type ResultClass int

const (
	// ResultOK means the result text carries no known failure marker.
	ResultOK ResultClass = iota
	// ResultAuthFailure means the CLI rejected the request for auth reasons
	// and the user needs to log in again.
	ResultAuthFailure
	// ResultUnknown means the text was empty or unclassifiable.
	ResultUnknown
)

// ResultClassifier maps result text to a ResultClass. The processor takes one
// of these so the detection heuristic can be swapped without touching its
// control flow.
type ResultClassifier func(text string) ResultClass

// authFailureMarkers are substrings the CLI emits in result text when the
// stored credentials are no longer valid. Substring matching on free text is
// the only signal available; the CLI has no structured error code for this.
var authFailureMarkers = []string{
	"Invalid API key",
}

// ClassifyResultText is the default ResultClassifier.
func ClassifyResultText(text string) ResultClass {
	if strings.TrimSpace(text) == "" {
		return ResultUnknown
	}
	for _, marker := range authFailureMarkers {
		if strings.Contains(text, marker) {
			return ResultAuthFailure
		}
	}
	return ResultOK
}
