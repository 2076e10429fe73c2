package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 20
	MaxPageSize       = 100
)

// QueryParams holds pagination values parsed from the request query string.
type QueryParams struct {
	PageNumber int
	PageSize   int
}

// FromContext parses page_number/page_size with sane defaults.
func FromContext(c echo.Context) QueryParams {
	p := QueryParams{
		PageNumber: DefaultPageNumber,
		PageSize:   DefaultPageSize,
	}
	if v, err := strconv.Atoi(c.QueryParam("page_number")); err == nil && v > 0 {
		p.PageNumber = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && v > 0 {
		p.PageSize = v
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}
