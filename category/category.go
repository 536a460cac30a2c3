package category

// Category is one node of the tenant's category forest. A category with no
// ParentID is a root.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageRef string `json:"image,omitempty"`
	TenantID string `json:"supermarketId"`
	ParentID string `json:"parentCategory,omitempty"`
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == ""
}

// Draft is the mutable attribute set submitted on create and update. Nil
// fields are omitted from the multipart payload.
type Draft struct {
	Name     *string
	ParentID *string
}

// Fields flattens the draft into multipart form fields.
func (d Draft) Fields() map[string]string {
	fields := make(map[string]string)
	if d.Name != nil {
		fields["name"] = *d.Name
	}
	// An explicit empty ParentID detaches the category back to a root;
	// nil leaves the parent untouched.
	if d.ParentID != nil {
		fields["parentCategory"] = *d.ParentID
	}
	return fields
}
