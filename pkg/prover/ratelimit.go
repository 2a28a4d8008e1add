package prover

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// rateLimitedReader throttles reads so the shard store is not saturated by audits
type rateLimitedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (l *rateLimitedReader) Read(buf []byte) (int, error) {
	if burst := l.limiter.Burst(); len(buf) > burst {
		buf = buf[:burst]
	}

	n, err := l.r.Read(buf)
	if n > 0 {
		if werr := l.limiter.WaitN(l.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
