package store

import "github.com/relhe/billpilot/internal/domain/payment"

// visiblePageWidth is the width of the windowed page control.
const visiblePageWidth = 3

// totalPages computes ceil(n/size), with a minimum of one page: an empty
// view still reports a single page with zero items.
func totalPages(n, size int) int {
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// pageSlice returns the 1-based page's slice of the view, empty when the
// page is out of range.
func pageSlice(view []payment.Payment, page, size int) []payment.Payment {
	start := (page - 1) * size
	if start < 0 || start >= len(view) {
		return []payment.Payment{}
	}
	end := start + size
	if end > len(view) {
		end = len(view)
	}
	return view[start:end]
}

// visiblePages computes the contiguous run of page numbers shown in the page
// control. With at most visiblePageWidth pages every page is shown; beyond
// that the window is centered on the current page and re-anchored at either
// end so it always spans the full width.
func visiblePages(page, total int) []int {
	start, end := page-1, page+1
	if total <= visiblePageWidth {
		start, end = 1, total
	} else if page == 1 {
		start, end = 1, visiblePageWidth
	} else if page == total {
		start, end = total-visiblePageWidth+1, total
	} else {
		if start < 1 {
			start = 1
		}
		if end > total {
			end = total
		}
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}
