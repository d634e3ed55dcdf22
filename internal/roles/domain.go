package roles

// CreateInput carries the fields of a new role.
type CreateInput struct {
	Name        string
	Description string
}

// UpdateInput carries the fields to patch; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
}

func (in UpdateInput) empty() bool {
	return in.Name == nil && in.Description == nil
}

// Lookup selects a single role. Set fields must all match.
type Lookup struct {
	ID   int64
	Name string
}

// QueryOptions enumerates the recognised read options.
type QueryOptions struct {
	WithPermissions bool
}
