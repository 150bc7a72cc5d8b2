package core

// UpdateResult is the outcome of replacing a stored period's values.
type UpdateResult int

const (
	UpdateNotFound UpdateResult = iota
	UpdateUnchanged
	UpdateChanged
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateChanged:
		return "changed"
	case UpdateUnchanged:
		return "unchanged"
	default:
		return "not_found"
	}
}

// Message is the text shown to the user after an edit.
func (r UpdateResult) Message() string {
	switch r {
	case UpdateChanged:
		return "Data updated successfully"
	case UpdateUnchanged:
		return "No changes made to the data"
	default:
		return "No matching document found for update"
	}
}
