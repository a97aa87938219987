package providers

import "github.com/nexuscore/gateway/pkg/models"

// ErrorKind maps a provider-level failure classification onto the gateway's
// closed ErrorKind taxonomy, so the orchestrator can decide breaker-tripping
// and fallback behavior without knowing about vendor-specific error shapes.
func ErrorKind(err error) models.ErrorKind {
	if err == nil {
		return ""
	}
	if providerErr, ok := GetProviderError(err); ok {
		return classifyReason(providerErr.Reason)
	}
	return classifyReason(ClassifyError(err))
}

func classifyReason(reason FailoverReason) models.ErrorKind {
	switch reason {
	case FailoverRateLimit:
		return models.ErrorUpstreamRateLimit
	case FailoverServerError:
		return models.ErrorUpstream5xx
	case FailoverTimeout:
		return models.ErrorUpstreamNetwork
	case FailoverAuth, FailoverBilling, FailoverInvalidRequest, FailoverModelUnavailable:
		return models.ErrorUpstream4xx
	case FailoverContentFilter:
		return models.ErrorGuardrailBlocked
	default:
		return models.ErrorUpstreamNetwork
	}
}
