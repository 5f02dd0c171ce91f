package domain

// HoursPerWeek is the size of the hour-of-week targeting space.
const HoursPerWeek = 24 * 7

// IncludeExclude is a single targeting dimension. An empty Include list
// matches any value; a value present in Exclude never matches.
type IncludeExclude struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Empty reports whether the dimension places no constraint.
func (ie IncludeExclude) Empty() bool {
	return len(ie.Include) == 0 && len(ie.Exclude) == 0
}

// Targeting describes which requests a campaign bids on.
type Targeting struct {
	Sites     IncludeExclude `json:"sites"`
	Geos      IncludeExclude `json:"geos"`
	Devices   IncludeExclude `json:"devices"`
	Languages IncludeExclude `json:"languages"`
	Exchanges IncludeExclude `json:"exchanges"`
	Segments  IncludeExclude `json:"segments"`

	// HoursOfWeek lists allowed hours (0 = Sunday 00:00 UTC). Empty means
	// always.
	HoursOfWeek []int `json:"hours_of_week,omitempty"`

	// RequireSegments excludes requests that carry no user segments.
	RequireSegments bool `json:"require_segments,omitempty"`
}

// HourOfWeek maps a weekday (0 = Sunday) and an hour of day to a slot in
// [0, HoursPerWeek).
func HourOfWeek(weekday, hour int) int {
	return weekday*24 + hour
}
