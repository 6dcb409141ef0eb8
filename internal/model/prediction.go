package model

// Answer is a present prediction from one QA annotator.
type Answer struct {
	Text  string  `json:"answer"`
	Start int     `json:"answer_start"`
	Score float64 `json:"score"`
	Model string  `json:"model"`
}

// Prediction is one annotator's result for a row: Present when Answer is
// set, Absent otherwise. Reason explains an absent prediction.
type Prediction struct {
	Annotator string  `json:"annotator"`
	Answer    *Answer `json:"answer,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// Present builds a present prediction.
func Present(annotator string, a Answer) Prediction {
	return Prediction{Annotator: annotator, Answer: &a}
}

// Absent builds an absent prediction carrying the failure reason.
func Absent(annotator, reason string) Prediction {
	return Prediction{Annotator: annotator, Reason: reason}
}

// Get returns the answer and whether the prediction is present.
func (p Prediction) Get() (Answer, bool) {
	if p.Answer == nil {
		return Answer{}, false
	}
	return *p.Answer, true
}

// SetPrediction attaches p to the row. A prediction from the same annotator
// is replaced in place so re-running an annotator keeps its position.
func (r *Row) SetPrediction(p Prediction) {
	for i := range r.Predictions {
		if r.Predictions[i].Annotator == p.Annotator {
			r.Predictions[i] = p
			return
		}
	}
	r.Predictions = append(r.Predictions, p)
}

// Registry is the ordered set of annotator identifiers attached to a
// dataset. Registration order is the ranking discovery order.
type Registry struct {
	ids   []string
	index map[string]int
}

// NewRegistry creates a registry pre-populated with ids in order.
func NewRegistry(ids ...string) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, id := range ids {
		r.Register(id)
	}
	return r
}

// Register adds id if unseen and returns its position.
func (r *Registry) Register(id string) int {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[id]; ok {
		return i
	}
	r.index[id] = len(r.ids)
	r.ids = append(r.ids, id)
	return len(r.ids) - 1
}

// IDs returns the identifiers in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Len returns the number of registered annotators.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Order returns the row's predictions arranged in registry order.
// Predictions from unregistered annotators follow in their row order.
func (r *Registry) Order(preds []Prediction) []Prediction {
	out := make([]Prediction, 0, len(preds))
	byID := make(map[string]Prediction, len(preds))
	for _, p := range preds {
		byID[p.Annotator] = p
	}
	for _, id := range r.ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	for _, p := range preds {
		if _, ok := r.index[p.Annotator]; !ok {
			out = append(out, p)
		}
	}
	return out
}
