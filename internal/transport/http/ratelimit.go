package http

import "golang.org/x/time/rate"

// inboundLimiter throttles frames read from one websocket connection.
// A nil limiter allows everything.
type inboundLimiter struct {
	limiter *rate.Limiter
}

func newInboundLimiter(rps float64, burst int) *inboundLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &inboundLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *inboundLimiter) allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}
