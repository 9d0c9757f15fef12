package model

// Insurer is an insurance company the agency places business with.
type Insurer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PolicyType is a product line offered by an insurer.
type PolicyType struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// PolicyTypeGroup is a category bucket of policy types, ordered for
// display.
type PolicyTypeGroup struct {
	Category string       `json:"category"`
	Types    []PolicyType `json:"types"`
}

// Subagent is an intermediary who sourced the business.
type Subagent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is the policyholder record held by the core system.
type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
