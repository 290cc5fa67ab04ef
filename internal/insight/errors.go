package insight

import (
	"errors"

	"github.com/KaramelBytes/ainsight/internal/ai"
	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/KaramelBytes/ainsight/internal/chart"
)

// Kind classifies a failure so callers can react without matching on text.
type Kind int

const (
	KindNone Kind = iota
	KindParse
	KindAuth
	KindTransport
	KindResponseShape
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindResponseShape:
		return "response_shape"
	case KindRender:
		return "render"
	default:
		return "none"
	}
}

// Error carries a Kind alongside the underlying failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Classify maps an error from any stage of the pipeline to its Kind. Errors
// from the chat endpoint that are not credential problems, including
// timeouts and cancellations, are transport errors.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		ie    *Error
		pe    *analysis.ParseError
		re    *chart.RenderError
		auth  *ai.AuthError
		shape *ai.ResponseShapeError
	)
	switch {
	case errors.As(err, &ie):
		return ie.Kind
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &re):
		return KindRender
	case errors.As(err, &auth), errors.Is(err, ai.ErrMissingAPIKey):
		return KindAuth
	case errors.As(err, &shape):
		return KindResponseShape
	default:
		return KindTransport
	}
}
