package store

// Selection is a single-selection cursor over a store's collection. The empty
// id means nothing is selected.
//
// Membership is not checked when selecting: an id that has not been fetched
// yet is accepted and resolves once the collection catches up. Selection is
// not safe for concurrent use on its own; Store guards it with its lock.
type Selection struct {
	id string
}

// Toggle selects id, or clears the selection when id is already selected.
// It returns the selected id after the call.
func (s *Selection) Toggle(id string) string {
	if id == "" || s.IsSelected(id) {
		s.id = ""
	} else {
		s.id = id
	}
	return s.id
}

func (s *Selection) Clear() {
	s.id = ""
}

// ID returns the selected id, or "" when nothing is selected.
func (s Selection) ID() string {
	return s.id
}

// IsSelected reports whether id is the selected id. The empty id never is.
func (s Selection) IsSelected(id string) bool {
	return id != "" && s.id == id
}
