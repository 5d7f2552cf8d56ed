// Package matcher scores resumes against a job description by keyword
// overlap and stated years of experience.
package matcher

import (
	"math"
	"strings"
)

type Eligibility string

const (
	Eligible    Eligibility = "ELIGIBLE"
	NotEligible Eligibility = "NOT ELIGIBLE"
)

// Result is one score card.
type Result struct {
	Filename        string      `json:"filename"`
	JobKeywords     []string    `json:"job_keywords"`
	MatchedKeywords []string    `json:"matched_keywords"`
	MatchScore      float64     `json:"match_score"`
	Experience      int         `json:"experience"`
	Eligibility     Eligibility `json:"eligibility"`
	Review          string      `json:"review,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Job is a processed job description.
type Job struct {
	Keywords []string
}

type Config struct {
	TopKeywords       int
	SpellingThreshold float64
}

type Matcher struct {
	topKeywords       int
	spellingThreshold float64
}

func New(cfg Config) *Matcher {
	m := &Matcher{
		topKeywords:       cfg.TopKeywords,
		spellingThreshold: cfg.SpellingThreshold,
	}
	if m.topKeywords <= 0 {
		m.topKeywords = DefaultTopKeywords
	}
	if m.spellingThreshold <= 0 {
		m.spellingThreshold = DefaultSpellingThreshold
	}
	return m
}

// PrepareJob extracts the keywords every resume is measured against.
func (m *Matcher) PrepareJob(description string) Job {
	processed := Normalize(Tokenize(description))
	return Job{Keywords: ExtractKeywords(strings.Join(processed, " "), m.topKeywords)}
}

// Score measures one resume's extracted text against job.
func (m *Matcher) Score(job Job, filename, text string) Result {
	text = strings.ToLower(text)
	words := Normalize(Tokenize(text))

	corrected := make(map[string]struct{}, len(words))
	for _, w := range words {
		corrected[CorrectSpelling(w, job.Keywords, m.spellingThreshold)] = struct{}{}
	}

	score, matched := CalculateMatch(job.Keywords, corrected)
	experience := ExtractExperience(text)

	return Result{
		Filename:        filename,
		JobKeywords:     nonNil(job.Keywords),
		MatchedKeywords: matched,
		MatchScore:      score,
		Experience:      experience,
		Eligibility:     CheckEligibility(score, experience),
	}
}

// Failed builds the card for a resume that could not be read.
func (m *Matcher) Failed(job Job, filename string, err error) Result {
	return Result{
		Filename:        filename,
		JobKeywords:     nonNil(job.Keywords),
		MatchedKeywords: []string{},
		Eligibility:     NotEligible,
		Error:           err.Error(),
	}
}

// CalculateMatch returns the percentage of job keywords found in the resume,
// rounded to two decimals, and the matched keywords in job keyword order.
func CalculateMatch(jobKeywords []string, resumeWords map[string]struct{}) (float64, []string) {
	matched := []string{}
	seen := make(map[string]struct{}, len(jobKeywords))
	for _, kw := range jobKeywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if _, ok := resumeWords[kw]; ok {
			matched = append(matched, kw)
		}
	}
	if len(jobKeywords) == 0 {
		return 0, matched
	}
	score := float64(len(matched)) / float64(len(jobKeywords)) * 100
	return math.Round(score*100) / 100, matched
}

func CheckEligibility(matchScore float64, experience int) Eligibility {
	if matchScore >= 40 {
		return Eligible
	}
	if matchScore >= 25 && experience >= 1 {
		return Eligible
	}
	return NotEligible
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
