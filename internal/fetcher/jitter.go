package fetcher

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Jitter draws a duration uniformly from [min, max]. Randomizing waits
// desynchronizes retry and politeness timing when overlapping runs hit the
// same host.
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := big.NewInt(int64(max - min + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return min + (max-min)/2
	}
	return min + time.Duration(n.Int64())
}
