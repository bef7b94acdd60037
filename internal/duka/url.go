package duka

import (
	"fmt"
	"strings"
)

// BaseURL is the default root every resource path is composed against.
// A deployment may override it (Options.BaseURL / Config.Duka.BaseURL) to
// point at a mirror or a test double without changing any planning logic.
const BaseURL = "https://datafeed.dukascopy.com/datafeed"

// BuildURL composes the remote path for one plan unit against the default
// BaseURL, reproducing the source-side convention bit-exactly: months are
// zero-indexed, days/hours are two-digit, and sides render uppercase. Side
// is ignored for ticks.
func BuildURL(remotePrefix string, u PlanUnit, side Side) string {
	return buildURL(BaseURL, remotePrefix, u, side)
}

func buildURL(base, remotePrefix string, u PlanUnit, side Side) string {
	year := u.Date.Year()
	month := int(u.Date.Month()) - 1
	day := u.Date.Day()

	switch u.Granularity {
	case Ticks:
		return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02dh_ticks.bi5",
			base, remotePrefix, year, month, day, u.Hour)
	case Minute:
		return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s_candles_min_1.bi5",
			base, remotePrefix, year, month, day, sideCode(side))
	case Hour:
		return fmt.Sprintf("%s/%s/%04d/%02d/%s_candles_hour_1.bi5",
			base, remotePrefix, year, month, sideCode(side))
	case Day:
		return fmt.Sprintf("%s/%s/%04d/%s_candles_day_1.bi5",
			base, remotePrefix, year, sideCode(side))
	default:
		panic(fmt.Sprintf("duka: BuildURL: unknown fetch granularity %q", u.Granularity))
	}
}

func sideCode(s Side) string {
	return strings.ToUpper(string(s))
}

// CacheKey derives a cache key from a resource URL: strip the default base
// prefix and replace path separators with "-", so cache entries are one
// flat file per resource. A custom Options.BaseURL just falls through the
// TrimPrefix untouched, so the key is still unique, only less tidy.
func CacheKey(url string) string {
	key := strings.TrimPrefix(url, BaseURL+"/")
	return strings.ReplaceAll(key, "/", "-")
}
