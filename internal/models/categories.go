package models

// Coverage group labels, shortest span first. The order is the stacking
// order of the coverage area chart.
var CoverageGroups = []string{
	"<30 yr",
	"30-100 yr",
	">100 yr",
}

// Nominal resolution bucket labels, coarsest first. The order is the
// stacking order of the resolution area chart.
var ResolutionBuckets = []string{
	"Multiannual",
	"Biannual",
	"Annual",
	"Seasonal",
	"Bimonthly",
	"Monthly",
	"Fortnightly",
	"Weekly",
	"Daily",
}

// CoverageRank returns the label's position among coverage groups, or -1.
func CoverageRank(label string) int {
	return labelRank(CoverageGroups, label)
}

// ResolutionRank returns the label's position among resolution buckets, or -1.
func ResolutionRank(label string) int {
	return labelRank(ResolutionBuckets, label)
}

func labelRank(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}
