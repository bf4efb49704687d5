package engine

// Applier materializes a patch against a base row. For new rows base is the
// zero value; the applier is responsible for setting the row id and must not
// mutate its argument.
type Applier[R Row] func(base R, id string, fields Fields) R

// MergeView overlays staged patches onto a base snapshot, producing the rows
// the user currently sees. Pure: inputs are not mutated, base order is
// preserved, rows marked removed are dropped, and new rows are appended at
// the end in staging order.
func MergeView[R Row](base []R, patches []*Patch, apply Applier[R]) []R {
	byID := make(map[string]*Patch, len(patches))
	for _, p := range patches {
		byID[p.TargetID] = p
	}

	out := make([]R, 0, len(base))
	matched := make(map[string]bool, len(patches))
	for _, row := range base {
		p := byID[row.RowID()]
		if p == nil {
			out = append(out, row)
			continue
		}
		matched[p.TargetID] = true
		if p.IsRemoved {
			continue
		}
		out = append(out, apply(row, p.TargetID, p.Fields))
	}

	for _, p := range patches {
		if !p.IsNew || matched[p.TargetID] || p.IsRemoved {
			continue
		}
		var zero R
		out = append(out, apply(zero, p.TargetID, p.Fields))
	}
	return out
}
