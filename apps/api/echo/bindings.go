package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lehine87/educanvas/core"
)

const sortParam = "sort"

// SortOrder binds the "sort" query parameter: comma-separated column names,
// "-" prefix for descending. The parameter may be repeated; blank entries
// are skipped. Unknown columns are left for the repository's allow-list.
type SortOrder struct {
	Orderings []core.DBOrdering
}

func (so *SortOrder) Bind(ctx echo.Context) {
	for _, val := range ctx.QueryParams()[sortParam] {
		for _, field := range strings.Split(val, ",") {
			field = strings.TrimSpace(field)
			descending := strings.HasPrefix(field, "-")
			if descending {
				field = field[1:]
			}
			if field == "" {
				continue
			}
			so.Orderings = append(so.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}
