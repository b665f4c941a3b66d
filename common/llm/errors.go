package llm

import (
	"context"
	"errors"
	"net"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// ErrorClass drives the fallback chain's retry-vs-advance decision:
// temporary errors get exactly one same-provider retry, permanent and
// unknown errors advance to the next provider immediately.
type ErrorClass int

const (
	ErrorUnknown ErrorClass = iota
	ErrorTemporary
	ErrorPermanent
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorTemporary:
		return "temporary"
	case ErrorPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classify maps a provider call error onto an ErrorClass. Rate limits
// and overload responses (429/503/504) along with timeouts and network
// errors are temporary; auth and quota failures (401/402) are permanent;
// everything else is unknown.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTemporary
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return classifyStatus(oaiErr.StatusCode)
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return classifyStatus(anthErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTemporary
	}

	return ErrorUnknown
}

func classifyStatus(status int) ErrorClass {
	switch status {
	case 429, 503, 504:
		return ErrorTemporary
	case 401, 402:
		return ErrorPermanent
	default:
		return ErrorUnknown
	}
}
