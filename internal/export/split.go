package export

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/model"
)

// SplitResult holds the train and validation partitions.
type SplitResult struct {
	Train      []model.Row
	Validation []model.Row
}

// Split partitions rows into train and validation sets. Rows are grouped by
// parent (or by their own id when they have none) so siblings expanded from
// one row land in the same partition. The same seed always yields the same
// split, and both partitions keep input order.
func Split(rows []model.Row, validationFraction float64, seed uint64) (SplitResult, error) {
	if validationFraction < 0 || validationFraction >= 1 || math.IsNaN(validationFraction) {
		return SplitResult{}, eris.Errorf("export: validation fraction %v outside [0, 1)", validationFraction)
	}

	var groups []string
	seen := make(map[string]bool)
	for _, r := range rows {
		key := groupKey(r)
		if !seen[key] {
			seen[key] = true
			groups = append(groups, key)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })

	n := int(math.Round(float64(len(groups)) * validationFraction))
	validation := make(map[string]bool, n)
	for _, key := range groups[:n] {
		validation[key] = true
	}

	var res SplitResult
	for _, r := range rows {
		if validation[groupKey(r)] {
			res.Validation = append(res.Validation, r)
		} else {
			res.Train = append(res.Train, r)
		}
	}
	return res, nil
}

func groupKey(r model.Row) string {
	if r.ParentID != "" {
		return r.ParentID
	}
	return r.ID
}
