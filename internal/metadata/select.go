package metadata

import "errors"

// ErrNoCandidate is returned by ChooseBest when the candidate set is
// empty. It signals "assemble from overrides and facts alone", not a hard
// failure.
var ErrNoCandidate = errors.New("no candidate record available")

// ChooseBest picks the single best candidate under a strict total order:
// field completeness first, then source priority, then position in the
// input sequence. The result is deterministic for identical inputs; ties
// never depend on traversal order of anything unordered.
func ChooseBest(candidates []*Candidate) (*Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if beats(c, best) {
			best = c
		}
	}
	return best, nil
}

// beats reports whether challenger strictly outranks incumbent. Equal
// tuples keep the incumbent, which is the earlier entry in the input.
func beats(challenger, incumbent *Candidate) bool {
	cc, ic := challenger.Completeness(), incumbent.Completeness()
	if cc != ic {
		return cc > ic
	}
	return challenger.Priority > incumbent.Priority
}
