package domain

import "time"

// RequestMeta is the framework-free view of an inbound request used by the gate.
type RequestMeta struct {
	ClientIP      string
	UserAgent     string
	Path          string
	Authorization string
}

// RateLimitKey identifies the sliding window shared by a client, user agent and path.
func (m RequestMeta) RateLimitKey() string {
	return m.ClientIP + ":" + m.UserAgent + ":" + m.Path
}

// GateDecision is the outcome of evaluating a request against the security gate.
type GateDecision struct {
	Allowed bool
	Status  int
	Reason  string
	Headers map[string]string
}

// RateWindow describes the sliding window after recording a request.
type RateWindow struct {
	Count  int
	Oldest time.Time
}
