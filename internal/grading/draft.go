package grading

// Draft is the edit buffer for the student currently on screen. It is only
// written into a Record by Store.Persist.
type Draft struct {
	Selected       map[string]bool
	ExtraDeduction float64
	Comments       string
}

// DraftFrom loads the buffer from a record.
func DraftFrom(rec Record) Draft {
	d := Draft{
		Selected:       make(map[string]bool, len(rec.SelectedRubrics)),
		ExtraDeduction: rec.ExtraDeduction,
		Comments:       rec.Comments,
	}
	for _, name := range rec.SelectedRubrics {
		d.Selected[name] = true
	}
	return d
}

// Clone returns an independent copy.
func (d Draft) Clone() Draft {
	out := d
	out.Selected = make(map[string]bool, len(d.Selected))
	for name, on := range d.Selected {
		if on {
			out.Selected[name] = true
		}
	}
	return out
}

// Toggle flips a rubric selection and returns the new state.
func (d *Draft) Toggle(name string) bool {
	if d.Selected == nil {
		d.Selected = map[string]bool{}
	}
	if d.Selected[name] {
		delete(d.Selected, name)
		return false
	}
	d.Selected[name] = true
	return true
}

// IsSelected reports whether name is ticked.
func (d Draft) IsSelected(name string) bool {
	return d.Selected[name]
}

// Rename moves a selection to a new rubric name.
func (d *Draft) Rename(from, to string) {
	if !d.Selected[from] {
		return
	}
	delete(d.Selected, from)
	d.Selected[to] = true
}

// Drop clears a selection.
func (d *Draft) Drop(name string) {
	delete(d.Selected, name)
}

// SelectedIn returns ticked names in the given catalog order. Names not in
// order are ignored.
func (d Draft) SelectedIn(order []string) []string {
	out := []string{}
	for _, name := range order {
		if d.Selected[name] {
			out = append(out, name)
		}
	}
	return out
}

// Score previews the draft against a catalog.
func (d Draft) Score(fullScore float64, order []string, points map[string]float64) Result {
	return Calculate(fullScore, d.SelectedIn(order), points, d.ExtraDeduction)
}
