package users

// CreateInput carries the fields of a new user.
type CreateInput struct {
	Name     string
	Username string
	Email    string
	Password string
	// Active defaults to false.
	Active *bool
}

// UpdateInput carries the fields to patch; nil fields are left unchanged.
type UpdateInput struct {
	Name     *string
	Username *string
	Email    *string
	Password *string
	Active   *bool
}

func (in UpdateInput) empty() bool {
	return in.Name == nil && in.Username == nil && in.Email == nil && in.Password == nil && in.Active == nil
}

// Lookup selects a single user. Set fields must all match.
type Lookup struct {
	ID       int64
	Username string
	Email    string
}

// QueryOptions enumerates the recognised read options.
type QueryOptions struct {
	WithRoles bool
}
