package realtime

import (
	"math/rand"
	"sync"
	"time"
)

// Push keys follow the classic realtime-database scheme: 8 characters of
// millisecond timestamp followed by 12 characters of entropy, drawn from an
// alphabet whose byte order matches its logical order. Keys generated by one
// process therefore sort lexicographically in creation order, including
// several keys within the same millisecond.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

type pushIDGen struct {
	mu         sync.Mutex
	lastMillis int64
	lastRand   [12]int
}

var defaultPushGen pushIDGen

// NewPushID returns a fresh time-ordered child key.
func NewPushID() string {
	return defaultPushGen.next(time.Now().UnixMilli())
}

func (g *pushIDGen) next(millis int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if millis <= g.lastMillis {
		// Same millisecond (or clock went backwards): increment the previous
		// entropy so ordering still holds.
		millis = g.lastMillis
		for i := 11; i >= 0; i-- {
			g.lastRand[i]++
			if g.lastRand[i] < 64 {
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		for i := range g.lastRand {
			g.lastRand[i] = rand.Intn(64)
		}
	}
	g.lastMillis = millis

	var b [20]byte
	ts := millis
	for i := 7; i >= 0; i-- {
		b[i] = pushAlphabet[ts%64]
		ts /= 64
	}
	for i, r := range g.lastRand {
		b[8+i] = pushAlphabet[r]
	}
	return string(b[:])
}
