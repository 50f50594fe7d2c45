package domain

import "strings"

// DegradationPolicyMode enumerates how the gate behaves when a security store cannot be read.
type DegradationPolicyMode string

const (
	// DegradationPolicyModeLenient logs the failure and lets the request through.
	DegradationPolicyModeLenient DegradationPolicyMode = "lenient"
	// DegradationPolicyModeStrict rejects the request with 503.
	DegradationPolicyModeStrict DegradationPolicyMode = "strict"
)

// DegradationReason names the store lookup that failed.
type DegradationReason string

const (
	DegradationReasonIPBlacklistUnavailable    DegradationReason = "ip_blacklist_unavailable"
	DegradationReasonRateLimitUnavailable      DegradationReason = "rate_limit_unavailable"
	DegradationReasonTokenBlacklistUnavailable DegradationReason = "token_blacklist_unavailable"
	DegradationReasonIdentityCacheUnavailable  DegradationReason = "identity_cache_unavailable"
)

// DegradationPolicy centralises the response to read-path store failures.
type DegradationPolicy struct {
	mode   DegradationPolicyMode
	strict map[DegradationReason]bool
}

// NewDegradationPolicy constructs a policy with the provided mode, defaulting to lenient when unspecified.
func NewDegradationPolicy(mode DegradationPolicyMode) DegradationPolicy {
	if mode != DegradationPolicyModeStrict {
		mode = DegradationPolicyModeLenient
	}
	return DegradationPolicy{mode: mode}
}

// ParseDegradationPolicyMode normalises textual input into a supported policy mode.
func ParseDegradationPolicyMode(value string) DegradationPolicyMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DegradationPolicyModeStrict):
		return DegradationPolicyModeStrict
	default:
		return DegradationPolicyModeLenient
	}
}

// WithStrictReasons returns a lenient-by-default policy that still rejects the listed reasons.
func (p DegradationPolicy) WithStrictReasons(reasons ...DegradationReason) DegradationPolicy {
	strict := make(map[DegradationReason]bool, len(p.strict)+len(reasons))
	for r := range p.strict {
		strict[r] = true
	}
	for _, r := range reasons {
		strict[r] = true
	}
	return DegradationPolicy{mode: p.mode, strict: strict}
}

// Mode returns the underlying policy mode.
func (p DegradationPolicy) Mode() DegradationPolicyMode {
	return p.mode
}

// IsStrict indicates whether the policy rejects degraded states.
func (p DegradationPolicy) IsStrict() bool {
	return p.mode == DegradationPolicyModeStrict
}

// AllowsFallback determines if the policy permits continuing when the supplied reason occurs.
func (p DegradationPolicy) AllowsFallback(reason DegradationReason) bool {
	if p.IsStrict() {
		return false
	}
	return !p.strict[reason]
}
