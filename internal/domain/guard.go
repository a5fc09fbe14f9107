package domain

// GuardResult is the outcome of a guard evaluation (rate limiter, circuit
// breaker). A disallowed result carries the reason and which guard tripped.
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}
