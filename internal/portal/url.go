package portal

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/shiftmetrics/shift-insights/internal/window"
)

const (
	functionRollup    = "functionRollup"
	processPathRollup = "processPathRollup"
)

// reportURL builds the intraday rollup URL for one process and window.
// Processes without a portal ID come from the process path rollup instead of
// the function rollup.
func (c *Client) reportURL(site string, proc schema.Process, w window.Window) string {
	report := functionRollup
	if proc.PortalID == "" {
		report = processPathRollup
	}

	params := url.Values{}
	params.Set("reportFormat", "CSV")
	params.Set("warehouseId", site)
	if proc.PortalID != "" {
		params.Set("processId", proc.PortalID)
	}
	params.Set("maxIntradayDays", "1")
	params.Set("spanType", "Intraday")
	setIntraday(params, "start", w.Start)
	setIntraday(params, "end", w.End)
	params.Set("_adjustPlanHours", "on")
	params.Set("_hideEmptyLineItems", "on")
	params.Set("employmentType", "AllEmployees")

	return c.baseURL + report + "?" + params.Encode()
}

// setIntraday writes the portal's split date/hour/minute triplet. Hours and
// minutes are sent without leading zeros, matching what the portal UI emits.
func setIntraday(params url.Values, prefix string, t time.Time) {
	params.Set(prefix+"DateIntraday", t.Format("2006/01/02"))
	params.Set(prefix+"HourIntraday", strconv.Itoa(t.Hour()))
	params.Set(prefix+"MinuteIntraday", strconv.Itoa(t.Minute()))
}
