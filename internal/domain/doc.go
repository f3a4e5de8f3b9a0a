// Package domain models historical daily precipitation and the climate
// summaries derived from it.
//
// # Data Source
//
// Daily totals come from the Open-Meteo historical weather archive
// (https://archive-api.open-meteo.com/v1/archive). A request names one
// coordinate, a date range, the single daily variable "precipitation_sum",
// a unit system and a timezone. The response carries two parallel arrays:
//
//	"daily": {
//	  "time":              ["1940-01-01", "1940-01-02", ...],
//	  "precipitation_sum": [0.0, null, 0.12, ...]
//	}
//
// A null reading means the archive has no value for that day and is counted
// as 0. Dates are local calendar dates in the requested timezone, so the
// first four characters are always the year and the first seven the month.
//
// # Series
//
// Daily samples are reduced by summation to yearly ("2020") or monthly
// ("2020-06") points. Sums are rounded to two decimals. Years or months with
// no samples are simply absent; nothing is interpolated.
//
// # Metrics
//
// Three scalars summarize a yearly series:
//
//	Amount:      mean of the trailing (up to) 10 years, in unit/yr.
//	Trend:       percent change between the mean of the last 20 years and the
//	             mean of the 20 years before that. Needs 40 years of history.
//	Variability: population standard deviation of every yearly total.
//
// A nil metric means there is not enough history to compute it. It is not an
// error and renders as "no data".
//
// # Color Scales
//
// Each metric kind owns a threshold table evaluated from the highest bound
// down. A value takes the color of the first bound it strictly exceeds, so a
// value exactly on a bound falls into the band below. Values under every bound
// take the table's floor color.
//
//	Amount:      >25 | >20 | >15 | >10 | floor           (inches/yr)
//	Trend:       >20 | >10 | >0 | >-10 | >-20 | floor    (percent)
//	Variability: >6 | >5 | >4 | >3 | >2 | floor          (std dev)
//
// # Statistics
//
// [Summarize] describes whatever series is being charted (yearly, monthly or
// daily). Its decade-over-decade change and long-term trend are independent
// of the Metric Engine and gated by their own sample-count rules.
package domain
