package permissions

// CreateInput carries the fields of a new permission. Resource is a
// resource name.
type CreateInput struct {
	Action      string
	Resource    string
	Description string
}

// UpdateInput carries the fields to patch; nil fields are left unchanged.
type UpdateInput struct {
	Action      *string
	Resource    *string
	Description *string
}

func (in UpdateInput) empty() bool {
	return in.Action == nil && in.Resource == nil && in.Description == nil
}

// Lookup selects a single permission. Set fields must all match.
type Lookup struct {
	ID       int64
	Action   string
	Resource string
}
