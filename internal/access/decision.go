package access

import "gorm.io/gorm"

// Decision is the outcome of an access predicate: full access, outright
// denial, or access restricted to the rows matching Filter.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Filter  *Where `json:"filter,omitempty"`
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny() Decision {
	return Decision{}
}

func Scoped(w Where) Decision {
	return Decision{Allowed: true, Filter: &w}
}

// Apply narrows a query to the decision. Denials become the empty filter so
// callers that only run list queries need no separate branch.
func (d Decision) Apply(tx *gorm.DB) *gorm.DB {
	if !d.Allowed {
		return Nothing().Apply(tx)
	}
	if d.Filter == nil {
		return tx
	}
	return d.Filter.Apply(tx)
}
