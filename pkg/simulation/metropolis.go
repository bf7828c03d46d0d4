package simulation

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/alecomunian/geone/pkg/truncation"
)

// conditioner runs the Metropolis-Hastings resampling of the latent values at
// the conditioning points until the truncation rule reproduces every required
// category.
//
// Below the iteration floor iterMin every point is resampled each sweep; a
// candidate matching its category is always accepted and a wrong candidate is
// accepted with a probability decaying from acceptInit to zero, which lets the
// chain escape a bad initialization. From iterMin on only unhonored points are
// resampled and wrong candidates are never accepted, so the honored count can
// no longer decrease and the loop stops as soon as it reaches npt.
type conditioner struct {
	t1, t2     *fieldCtx
	rule       truncation.Rule
	categories []float64

	acceptInit float64
	acceptPow  float64
	iterMin    int
	iterMax    int
}

// run mutates the point values t1, t2 in place and returns the honored count
// recorded at the start of every iteration, plus a final recount when the
// iteration budget ran out. Conditioning succeeded when the last entry equals
// the number of points. A singular kriging subsystem aborts with an error;
// the caller retries the attempt.
func (c *conditioner) run(t1, t2 []float64, rng *rand.Rand) ([]int, error) {
	npt := len(t1)
	honored := make([]bool, npt)
	recount := func() int {
		n := 0
		for k := range honored {
			honored[k] = c.rule(t1[k], t2[k]) == c.categories[k]
			if honored[k] {
				n++
			}
		}
		return n
	}

	// Two deterministic fields leave nothing to resample: the values can
	// never move, so the rule either honors the data now or never will.
	if c.t1.ps == nil && c.t2.ps == nil {
		return []int{recount()}, nil
	}

	history := make([]int, 0, c.iterMax+1)
	active := make([]int, 0, npt-1)
	stop := false
	var pAccept float64
	for nit := 0; nit < c.iterMax; nit++ {
		n := recount()
		history = append(history, n)
		if nit >= c.iterMin {
			if n == npt {
				stop = true
				break
			}
		} else {
			pAccept = c.acceptInit * math.Pow(1-float64(nit)/float64(c.iterMin), c.acceptPow)
		}
		for _, k := range rng.Perm(npt) {
			// The flags are the ones recorded at the top of the sweep,
			// deliberately not refreshed as values move underneath.
			if nit >= c.iterMin && honored[k] {
				continue
			}
			active = active[:0]
			for i := 0; i < npt; i++ {
				if i != k {
					active = append(active, i)
				}
			}
			cand1, err := c.t1.candidate(active, k, t1, rng)
			if err != nil {
				return nil, err
			}
			cand2, err := c.t2.candidate(active, k, t2, rng)
			if err != nil {
				return nil, err
			}
			if c.rule(cand1, cand2) == c.categories[k] {
				t1[k], t2[k] = cand1, cand2
			} else if nit < c.iterMin && rng.Float64() < pAccept {
				t1[k], t2[k] = cand1, cand2
			}
		}
	}
	if !stop {
		history = append(history, recount())
	}
	return history, nil
}
