package service

const (
	defaultPageSize = 15
	maxPageSize     = 100
)

// normalizePage clamps page to >= 1 and pageSize to (0, maxPageSize], substituting fallback for unset sizes.
func normalizePage(page, pageSize, fallback int) (int, int) {
	if page < 1 {
		page = 1
	}
	if fallback <= 0 {
		fallback = defaultPageSize
	}
	if pageSize <= 0 {
		pageSize = fallback
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
