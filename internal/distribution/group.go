package distribution

// Segment is one category of a grouped distribution.
type Segment struct {
	Label      string  `json:"label"`
	Proportion float64 `json:"proportion"`
}

// Grouped is a value-limited distribution ready for rendering.
type Grouped []Segment

// Group drops rows whose proportion is strictly below threshold and appends
// an Others segment carrying the residual mass when it is at least
// minResidual. Rows must be sorted by descending proportion with Cumulative
// taken over the full original sequence; the residual is 1 minus the
// cumulative proportion of the last retained row, or 1 when nothing is
// retained.
func Group(rows []Row, threshold, minResidual float64) Grouped {
	out := make(Grouped, 0, len(rows)+1)
	last := 0.0
	for _, r := range rows {
		if r.Proportion < threshold {
			continue
		}
		out = append(out, Segment{Label: r.Value, Proportion: r.Proportion})
		last = r.Cumulative
	}
	residual := 1 - last
	if residual >= minResidual {
		out = append(out, Segment{Label: OthersLabel, Proportion: residual})
	}
	return out
}

// Rows converts segments back to rows with a running cumulative column so
// the grouper can be applied again.
func (g Grouped) Rows() []Row {
	rows := make([]Row, len(g))
	cum := 0.0
	for i, s := range g {
		cum += s.Proportion
		rows[i] = Row{Value: s.Label, Raw: s.Label, Proportion: s.Proportion, Cumulative: cum}
	}
	return rows
}

// Sum returns the total proportion of all segments.
func (g Grouped) Sum() float64 {
	var s float64
	for _, seg := range g {
		s += seg.Proportion
	}
	return s
}

// Labels returns the segment labels in order.
func (g Grouped) Labels() []string {
	out := make([]string, len(g))
	for i, s := range g {
		out[i] = s.Label
	}
	return out
}

// HasOthers reports whether the last segment is the synthetic Others bucket.
func (g Grouped) HasOthers() bool {
	return len(g) > 0 && g[len(g)-1].Label == OthersLabel
}
