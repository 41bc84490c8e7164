package domain

// Progress computes the clamped page and derived percent for a (page, total) pair.
// A non-positive total means the book has not been paginated yet: the page is only
// kept >= 1 and the percent is 0.
func Progress(page, total int) (current, percent int) {
	if total <= 0 {
		return max(page, 1), 0
	}
	current = min(max(page, 1), total)
	// round(current/total*100), half-up, in integer arithmetic
	percent = (current*200 + total) / (2 * total)
	return current, percent
}

// WithProgress returns b with page/total applied and LastRead set to nowMs
func (b Book) WithProgress(page, total int, nowMs int64) Book {
	if total < 0 {
		total = 0
	}
	b.CurrentPage, b.ProgressPercent = Progress(page, total)
	b.TotalPages = total
	b.LastRead = nowMs
	return b
}

// Normalize recomputes derived fields so a loaded record is consistent at rest
func (b Book) Normalize() Book {
	if b.TotalPages < 0 {
		b.TotalPages = 0
	}
	b.CurrentPage, b.ProgressPercent = Progress(b.CurrentPage, b.TotalPages)
	if b.Author == "" {
		b.Author = DefaultAuthor
	}
	return b
}
