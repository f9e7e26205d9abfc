package search

import "github.com/YuminosukeSato/studentperf/core/model"

// Evaluation is the outcome of one candidate.
type Evaluation struct {
	Name  string
	Score float64 // test R²

	// BestParams are the parameters of the fitted estimator: the grid
	// winner, or the defaults after a fallback.
	BestParams map[string]interface{}
	CVScore    float64 // mean CV R² of the winner; 0 after a fallback

	Fallback  bool
	SearchErr error // why the search failed when Fallback

	// Estimator is the fitted estimator that produced Score.
	Estimator model.Estimator
}

// Report holds one Evaluation per candidate in declaration order.
type Report struct {
	entries []Evaluation
}

// Len returns the number of evaluated candidates.
func (r *Report) Len() int { return len(r.entries) }

// Entries returns a copy of the evaluations in declaration order.
func (r *Report) Entries() []Evaluation {
	return append([]Evaluation(nil), r.entries...)
}

// Names returns the candidate names in declaration order.
func (r *Report) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// Scores returns the test score of every candidate by name.
func (r *Report) Scores() map[string]float64 {
	out := make(map[string]float64, len(r.entries))
	for _, e := range r.entries {
		out[e.Name] = e.Score
	}
	return out
}

// Get returns the evaluation of name.
func (r *Report) Get(name string) (Evaluation, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Evaluation{}, false
}

// Best returns the highest-scoring evaluation. Among equal scores the
// earliest declared candidate wins. ok is false for an empty report.
func (r *Report) Best() (best Evaluation, ok bool) {
	for i, e := range r.entries {
		if i == 0 || e.Score > best.Score {
			best = e
		}
	}
	return best, len(r.entries) > 0
}
