// Package store owns the client-side working copy of the payment records:
// the canonical identifier→record table, the filtered view derived from the
// current criteria, and the pagination state over that view. Derived state
// is always recomputed fully from the canonical table after any mutation,
// never incrementally patched.
package store

import (
	"sync"

	"github.com/relhe/billpilot/internal/domain/payment"
)

// DefaultPageSize is the number of records shown per page.
const DefaultPageSize = 10

// PageView is a snapshot of the currently displayed page.
type PageView struct {
	Items        []payment.Payment
	Page         int
	TotalPages   int
	VisiblePages []int
}

// Store holds the session's payment records and the derived view state.
type Store struct {
	mu sync.Mutex

	payments map[string]payment.Payment
	order    []string // canonical iteration order, as received from the service

	criteria Criteria
	view     []payment.Payment // ordered filtered view

	page     int
	pageSize int

	totalPages   int
	visiblePages []int
	pageItems    []payment.Payment
}

// New creates an empty store. A non-positive pageSize falls back to
// DefaultPageSize.
func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s := &Store{
		payments: make(map[string]payment.Payment),
		pageSize: pageSize,
		page:     1,
	}
	s.refresh()
	return s
}

// Load replaces the full store and the filtered view wholesale and resets
// pagination to the first page. The incoming order is preserved.
func (s *Store) Load(records []payment.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments = make(map[string]payment.Payment, len(records))
	s.order = make([]string, 0, len(records))
	for _, p := range records {
		if _, dup := s.payments[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.payments[p.ID] = p
	}

	s.page = 1
	s.refresh()
}

// Get looks a record up by identifier.
func (s *Store) Get(id string) (payment.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	return p, ok
}

// Remove deletes the record from the canonical table and the filtered view.
// Removing an absent identifier is a no-op. Pagination is recomputed but the
// current page is kept.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[id]; !ok {
		return
	}
	delete(s.payments, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.refresh()
}

// ApplyFilters recomputes the filtered view from the canonical table using
// the given criteria. The current page is deliberately not reset, matching
// the behavior this manager replaces: a user re-filtering while on page 3
// stays on page 3 even if the new view no longer reaches it.
func (s *Store) ApplyFilters(c Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.criteria = c
	s.refresh()
}

// ChangePage moves to the given 1-based page. Out-of-range requests leave
// the state unchanged.
func (s *Store) ChangePage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 || page > s.totalPages {
		return
	}
	s.page = page
	s.repaginate()
}

// Page returns a snapshot of the current page.
func (s *Store) Page() PageView {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]payment.Payment, len(s.pageItems))
	copy(items, s.pageItems)
	visible := make([]int, len(s.visiblePages))
	copy(visible, s.visiblePages)

	return PageView{
		Items:        items,
		Page:         s.page,
		TotalPages:   s.totalPages,
		VisiblePages: visible,
	}
}

// View returns the current ordered filtered view.
func (s *Store) View() []payment.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]payment.Payment, len(s.view))
	copy(out, s.view)
	return out
}

// Len returns the number of records in the canonical table.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.payments)
}

// Criteria returns the criteria currently applied to the view.
func (s *Store) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.criteria
}

// refresh rebuilds the filtered view from the canonical table and the
// current criteria, then repaginates. Callers hold s.mu.
func (s *Store) refresh() {
	ordered := make([]payment.Payment, 0, len(s.order))
	for _, id := range s.order {
		ordered = append(ordered, s.payments[id])
	}
	s.view = Filter(ordered, s.criteria)
	s.repaginate()
}

// repaginate recomputes the page window over the current view. Callers hold s.mu.
func (s *Store) repaginate() {
	s.totalPages = totalPages(len(s.view), s.pageSize)
	s.visiblePages = visiblePages(s.page, s.totalPages)
	s.pageItems = pageSlice(s.view, s.page, s.pageSize)
}
