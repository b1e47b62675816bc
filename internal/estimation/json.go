package estimation

// ResponseJSON is the JSON form of a Response shared by the HTTP API and the CLI.
type ResponseJSON struct {
	Subject       string               `json:"subject"`
	MinimalScore  float64              `json:"minimal_score"`
	BestInstances []ScoredInstanceJSON `json:"best_instances"`
}

type ScoredInstanceJSON struct {
	Theory   string  `json:"theory"`
	Score    float64 `json:"score"`
	Instance []byte  `json:"instance"`
}

// ToJSON converts responses, naming theories by their text form.
func ToJSON(resps []Response) []ResponseJSON {
	out := make([]ResponseJSON, 0, len(resps))
	for _, r := range resps {
		jr := ResponseJSON{
			Subject:       r.SubjectName,
			MinimalScore:  r.MinimalScore,
			BestInstances: make([]ScoredInstanceJSON, 0, len(r.BestInstances)),
		}
		for _, si := range r.BestInstances {
			jr.BestInstances = append(jr.BestInstances, ScoredInstanceJSON{
				Theory:   si.Theory.String(),
				Score:    si.Score,
				Instance: si.Instance,
			})
		}
		out = append(out, jr)
	}
	return out
}
