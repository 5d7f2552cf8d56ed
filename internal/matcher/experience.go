package matcher

import (
	"regexp"
	"strconv"
)

var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\+?\s*(years|yrs)`),
	regexp.MustCompile(`experience\s*[:\-]?\s*(\d+)`),
}

// ExtractExperience returns the largest year count mentioned in text, or 0.
// text is expected to be lower case.
func ExtractExperience(text string) int {
	years := 0
	for _, p := range experiencePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n > years {
				years = n
			}
		}
	}
	return years
}
