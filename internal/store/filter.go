package store

import (
	"strings"

	"github.com/relhe/billpilot/internal/domain/payment"
)

// Criteria are the user-supplied view filters. Both fields are optional;
// when both are blank the view is the full store.
type Criteria struct {
	// Status keeps only records whose status matches exactly
	// (case-sensitive; statuses are a controlled enumeration).
	Status string
	// Search is matched case-insensitively as a substring against first
	// name, last name and both address lines.
	Search string
}

// IsZero reports whether no filtering is requested.
func (c Criteria) IsZero() bool {
	return c.Status == "" && c.Search == ""
}

// Filter returns the order-preserving subset of list matching the criteria.
// It is deterministic and side-effect free; both predicates compose by
// logical AND.
func Filter(list []payment.Payment, c Criteria) []payment.Payment {
	if c.IsZero() {
		out := make([]payment.Payment, len(list))
		copy(out, list)
		return out
	}

	term := strings.ToLower(c.Search)
	out := make([]payment.Payment, 0, len(list))
	for _, p := range list {
		if c.Status != "" && p.Status.String() != c.Status {
			continue
		}
		if term != "" && !matchesSearch(p, term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p payment.Payment, term string) bool {
	if strings.Contains(strings.ToLower(p.FirstName), term) ||
		strings.Contains(strings.ToLower(p.LastName), term) ||
		strings.Contains(strings.ToLower(p.AddressLine1), term) {
		return true
	}
	// an absent line 2 counts as no match for that field only
	return p.AddressLine2 != "" && strings.Contains(strings.ToLower(p.AddressLine2), term)
}
