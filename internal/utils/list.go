package utils

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// ListParams are the limit, page, all, sort_by and sort_dir query
// parameters accepted by every list endpoint.
type ListParams struct {
	All     bool
	Limit   int
	Page    int
	SortCol string
	SortDir string
}

// ParseListParams reads list parameters through get (usually gin's
// c.Query). allowedSorts maps public sort names to columns; unknown names
// fall back to defaultSort.
func ParseListParams(get func(string) string, allowedSorts map[string]string, defaultSort string) ListParams {
	p := ListParams{Limit: 20, Page: 1, SortCol: defaultSort, SortDir: "DESC"}
	all := get("all")
	p.All = strings.EqualFold(all, "true") || all == "1"
	if n, err := strconv.Atoi(get("limit")); err == nil && n > 0 {
		if n > 200 {
			n = 200
		}
		p.Limit = n
	}
	if n, err := strconv.Atoi(get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if col, ok := allowedSorts[strings.ToLower(get("sort_by"))]; ok {
		p.SortCol = col
	}
	if dir := strings.ToUpper(get("sort_dir")); dir == "ASC" || dir == "DESC" {
		p.SortDir = dir
	}
	return p
}

// Apply adds ordering and, unless All is set, offset and limit.
func (p ListParams) Apply(q *gorm.DB) *gorm.DB {
	q = q.Order(fmt.Sprintf("%s %s", p.SortCol, p.SortDir))
	if !p.All {
		q = q.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
	}
	return q
}

func (p ListParams) Meta(total int64) map[string]any {
	meta := map[string]any{"total": total, "all": p.All}
	if !p.All {
		meta["limit"] = p.Limit
		meta["page"] = p.Page
		meta["sortBy"] = p.SortCol
		meta["sortDir"] = p.SortDir
	}
	return meta
}
