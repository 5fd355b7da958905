package httpapi

// Config defines HTTP API settings.
type Config struct {
	Addr string
	// RateLimitPerSecond is the per-client request rate; zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
	// TrustedProxy is an IP or CIDR whose X-Forwarded-For header is honoured.
	TrustedProxy string
	// HubHistory is the number of stream events kept per deployment for replay.
	HubHistory int
}
