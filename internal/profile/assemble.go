package profile

import (
	"errors"
	"strings"
)

// ErrInsufficientData is returned when a record carries no usable signal.
// A profile behind a login wall typically extracts to all-empty fields; that
// is a failed acquisition, not an empty success.
var ErrInsufficientData = errors.New("profile has neither name nor headline")

// Assemble normalizes a raw extracted record and enforces the usability
// invariant: at least one of FullName or Headline must be non-empty after
// whitespace trimming. String fields are trimmed and bounded collections are
// truncated to their caps.
func Assemble(raw Record) (Record, error) {
	rec := Record{
		FullName: strings.TrimSpace(raw.FullName),
		Headline: strings.TrimSpace(raw.Headline),
		About:    strings.TrimSpace(raw.About),
		Location: strings.TrimSpace(raw.Location),
		Industry: strings.TrimSpace(raw.Industry),
	}

	if rec.FullName == "" && rec.Headline == "" {
		return Record{}, ErrInsufficientData
	}

	for _, e := range raw.Experience {
		if len(rec.Experience) >= MaxExperience {
			break
		}
		exp := Experience{
			Title:       strings.TrimSpace(e.Title),
			Company:     strings.TrimSpace(e.Company),
			Duration:    strings.TrimSpace(e.Duration),
			Description: strings.TrimSpace(e.Description),
		}
		if exp.Title == "" && exp.Company == "" {
			continue
		}
		rec.Experience = append(rec.Experience, exp)
	}

	for _, e := range raw.Education {
		if len(rec.Education) >= MaxEducation {
			break
		}
		edu := Education{
			School: strings.TrimSpace(e.School),
			Degree: strings.TrimSpace(e.Degree),
			Field:  strings.TrimSpace(e.Field),
		}
		if edu.School == "" {
			continue
		}
		rec.Education = append(rec.Education, edu)
	}

	seen := make(map[string]bool, len(raw.Skills))
	for _, s := range raw.Skills {
		if len(rec.Skills) >= MaxSkills {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		rec.Skills = append(rec.Skills, s)
	}

	return rec, nil
}
