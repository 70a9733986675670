package hipporag

import (
	"errors"

	"github.com/Ctrl-Creeper/HippoRAG/llm"
)

var (
	// ErrParse means the model output could not be parsed into triples
	// even after a stricter retry.
	ErrParse = errors.New("model output not in expected structured form")

	// ErrConfiguration means a per-call parameter was malformed
	// (ratio outside [0,1], unknown strategy name, ...).
	ErrConfiguration = errors.New("invalid configuration")
)

// Transport sentinels are owned by the llm package; aliased here so
// callers of this package can branch without importing both.
var (
	ErrServiceUnavailable = llm.ErrServiceUnavailable
	ErrTimeout            = llm.ErrTimeout
)
