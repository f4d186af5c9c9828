package http

import (
	"github.com/labstack/echo/v4"

	xutil "SectorPulse/pkg/util"
)

// QueryList reads a comma separated query parameter; repeated keys are merged.
func QueryList(c echo.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryParams()[name] {
		out = append(out, xutil.SplitCSV(raw)...)
	}
	return out
}
