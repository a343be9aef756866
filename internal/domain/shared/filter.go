package shared

// Filter carries list-query options from the HTTP layer down to the
// repositories. OrderBy is validated against a per-table whitelist before it
// reaches SQL.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}
