// Package reviews condenses the reviews left on a stone into something a player can read at a glance.
package reviews

import (
	"sort"
	"strings"

	rake "github.com/afjoseph/RAKE.Go"
	"github.com/montanaflynn/stats"

	"mossgarden/consensus/stones"
	"mossgarden/mossgarden"
)

const maxKeywords = 5

type Summary struct {
	Count        int
	MedianRating float64
	MeanRating   float64
	Keywords     []string
}

func Summarize(reviews []stones.Review) (s Summary) {
	s.Count = len(reviews)
	if s.Count == 0 {
		return
	}
	var ratings []float64
	var text []string
	for _, r := range reviews {
		ratings = append(ratings, float64(r.Rating))
		if c := strings.TrimSpace(r.Comment); len(c) > 0 {
			text = append(text, strings.TrimRight(c, ".!?"))
		}
	}
	var err error
	if s.MedianRating, err = stats.Median(ratings); err != nil {
		mossgarden.LogCLI(err.Error(), 2)
	}
	if s.MeanRating, err = stats.Mean(ratings); err != nil {
		mossgarden.LogCLI(err.Error(), 2)
	}
	s.Keywords = keywords(strings.Join(text, ". "))
	return
}

func keywords(text string) (k []string) {
	if len(text) == 0 {
		return
	}
	candidates := rake.RunRake(text)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Value == candidates[j].Value {
			return candidates[i].Key < candidates[j].Key
		}
		return candidates[i].Value > candidates[j].Value
	})
	for _, c := range candidates {
		if len(c.Key) == 0 || len(c.Key) >= 50 {
			continue
		}
		k = append(k, c.Key)
		if len(k) == maxKeywords {
			break
		}
	}
	return
}

// ForStone summarizes the reviews of a stone held by the Stones Mind.
func ForStone(id mossgarden.S256Hash) (Summary, bool) {
	st, ok := stones.Get(id)
	if !ok {
		return Summary{}, false
	}
	return Summarize(st.Reviews), true
}
