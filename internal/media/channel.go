package media

import "strings"

// Short-form detection: anything at or under 65 seconds, or tagged #shorts.
const shortFormMaxSeconds = 65

// KRW revenue-per-mille bands applied to monthly view estimates.
const (
	rpmLongLow   = 2500
	rpmLongHigh  = 4500
	rpmShortLow  = 70
	rpmShortHigh = 110
)

// ChannelStats summarizes a channel's recent uploads for benchmarking.
type ChannelStats struct {
	LongFormCount  int   `json:"long_form_count"`
	ShortFormCount int   `json:"short_form_count"`
	TotalViews     int64 `json:"total_views"`
	AvgLongViews   int64 `json:"avg_long_form_views"`
	AvgShortViews  int64 `json:"avg_short_form_views"`

	// Basis records which sample backs the numbers: "recent" uploads, or
	// "popular" all-time videos when the channel had no recent activity.
	Basis string `json:"basis"`

	Revenue RevenueEstimate `json:"revenue"`
}

// RevenueEstimate is a monthly KRW revenue band derived from view counts.
type RevenueEstimate struct {
	LongLow   int64 `json:"long_form_low"`
	LongHigh  int64 `json:"long_form_high"`
	ShortLow  int64 `json:"short_form_low"`
	ShortHigh int64 `json:"short_form_high"`
	TotalLow  int64 `json:"total_low"`
	TotalHigh int64 `json:"total_high"`
}

// BuildChannelStats splits entries into long and short form and derives view
// averages plus a monthly revenue band. A popular-videos sample covers the
// channel's lifetime rather than one quarter, so its views are scaled up to
// approximate a recent-activity equivalent before the revenue math.
func BuildChannelStats(entries []ChannelEntry, popular bool) ChannelStats {
	stats := ChannelStats{Basis: "recent"}
	if popular {
		stats.Basis = "popular"
	}

	var longViews, shortViews int64
	for _, e := range entries {
		short := e.Duration > 0 && e.Duration <= shortFormMaxSeconds
		if strings.Contains(strings.ToLower(e.Title), "#shorts") {
			short = true
		}
		if short {
			stats.ShortFormCount++
			shortViews += e.ViewCount
		} else {
			stats.LongFormCount++
			longViews += e.ViewCount
		}
	}

	stats.TotalViews = longViews + shortViews
	if stats.LongFormCount > 0 {
		stats.AvgLongViews = longViews / int64(stats.LongFormCount)
	}
	if stats.ShortFormCount > 0 {
		stats.AvgShortViews = shortViews / int64(stats.ShortFormCount)
	}

	revenueLong, revenueShort := longViews, shortViews
	if popular {
		revenueLong *= 10
		revenueShort *= 10
	}
	stats.Revenue = estimateMonthlyRevenue(revenueLong, revenueShort)

	return stats
}

// estimateMonthlyRevenue converts quarterly view totals into a monthly KRW
// band using per-format RPM rates.
func estimateMonthlyRevenue(quarterLongViews, quarterShortViews int64) RevenueEstimate {
	monthlyLong := quarterLongViews / 3
	monthlyShort := quarterShortViews / 3

	est := RevenueEstimate{
		LongLow:   monthlyLong / 1000 * rpmLongLow,
		LongHigh:  monthlyLong / 1000 * rpmLongHigh,
		ShortLow:  monthlyShort / 1000 * rpmShortLow,
		ShortHigh: monthlyShort / 1000 * rpmShortHigh,
	}
	est.TotalLow = est.LongLow + est.ShortLow
	est.TotalHigh = est.LongHigh + est.ShortHigh

	return est
}
