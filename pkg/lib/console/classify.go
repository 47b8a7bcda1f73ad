package console

import (
	"regexp"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

var (
	errorPattern   = regexp.MustCompile(`(?i)(\b(error|severe|fatal|exception)\b|^caused by:|^\s+at [\w$.]+\()`)
	warnPattern    = regexp.MustCompile(`(?i)\bwarn(ing)?\b`)
	successPattern = regexp.MustCompile(`(?i)(\bdone\b|\bsuccess(ful(ly)?)?\b|\bserver started\b|\bsaved the game\b)`)
	infoPattern    = regexp.MustCompile(`(?i)\binfo\b`)
)

// Classify tags a line of process output. Patterns are checked from most to
// least severe. Unmatched stderr lines are treated as errors; unmatched
// stdout lines are plain. The system tag is reserved for lines the supervisor
// writes itself.
func Classify(text string, stream lib.Stream) lib.Classification {
	switch {
	case errorPattern.MatchString(text):
		return lib.ClassError
	case warnPattern.MatchString(text):
		return lib.ClassWarn
	case successPattern.MatchString(text):
		return lib.ClassSuccess
	case infoPattern.MatchString(text):
		return lib.ClassInfo
	case stream == lib.StreamStderr:
		return lib.ClassError
	default:
		return lib.ClassPlain
	}
}
