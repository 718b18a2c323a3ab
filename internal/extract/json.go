package extract

import (
	"strconv"
	"strings"

	"github.com/scoutly/prospector/internal/profile"
)

// JSONSource wraps a decoded JSON object and exposes accessor-chain lookups
// over it. The upstream search API does not guarantee one schema across
// query types, so every field is resolved through an ordered key list.
type JSONSource map[string]any

// String returns the first key whose value is a non-blank string (numbers
// are formatted). ok=false when none of the keys hold a usable value.
func (s JSONSource) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, present := s[k]
		if !present {
			continue
		}
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				return t, true
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		}
	}
	return "", false
}

// Object returns a nested object under the first matching key.
func (s JSONSource) Object(keys ...string) (JSONSource, bool) {
	for _, k := range keys {
		if m, ok := s[k].(map[string]any); ok {
			return JSONSource(m), true
		}
	}
	return nil, false
}

// Objects returns a list of nested objects under the first matching key.
func (s JSONSource) Objects(keys ...string) []JSONSource {
	for _, k := range keys {
		list, ok := s[k].([]any)
		if !ok {
			continue
		}
		out := make([]JSONSource, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				out = append(out, JSONSource(m))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Strings returns a list of strings under the first matching key.
func (s JSONSource) Strings(keys ...string) []string {
	for _, k := range keys {
		list, ok := s[k].([]any)
		if !ok {
			continue
		}
		var out []string
		for _, item := range list {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, str)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (s JSONSource) field(accept Predicate, keys ...string) string {
	v, _ := FirstMatch([]Accessor{func() (string, bool) { return s.String(keys...) }}, accept)
	return v
}

// FromJSON runs the ruleset against a profile-shaped JSON object. Key chains
// cover the shapes observed across the upstream's query types (knowledge
// panel, profile list entries, organic results).
func FromJSON(src JSONSource) profile.Record {
	rec := profile.Record{
		FullName: src.field(nil, "name", "full_name", "title", "displayName"),
		Headline: src.field(nil, "headline", "job_title", "position", "occupation"),
		About:    src.field(MinLen(50), "about", "summary", "description", "snippet"),
		Location: src.field(ContainsComma, "location", "address", "city"),
		Industry: src.field(nil, "industry"),
	}

	// Organic results carry "Jane Doe - Headline | LinkedIn" titles; split
	// them when the shape has no dedicated name/headline keys.
	if rec.Headline == "" {
		if title, ok := src.String("title"); ok {
			name, headline := SplitResultTitle(title)
			if rec.FullName == "" || rec.FullName == CleanText(title) {
				rec.FullName = name
			}
			rec.Headline = headline
		}
	}

	for _, e := range src.Objects("experience", "experiences", "positions") {
		if len(rec.Experience) >= profile.MaxExperience {
			break
		}
		exp := profile.Experience{
			Title:       e.field(nil, "title", "position", "role"),
			Company:     e.field(nil, "company", "company_name", "organization"),
			Duration:    e.field(nil, "duration", "date_range", "dates"),
			Description: e.field(nil, "description", "summary"),
		}
		if exp.Title == "" && exp.Company == "" {
			continue
		}
		rec.Experience = append(rec.Experience, exp)
	}

	for _, e := range src.Objects("education", "schools") {
		if len(rec.Education) >= profile.MaxEducation {
			break
		}
		edu := profile.Education{
			School: e.field(nil, "school", "school_name", "institution"),
			Degree: e.field(nil, "degree", "degree_name"),
			Field:  e.field(nil, "field", "field_of_study", "major"),
		}
		if edu.School == "" {
			continue
		}
		rec.Education = append(rec.Education, edu)
	}

	skills := src.Strings("skills", "top_skills")
	if len(skills) > profile.MaxSkills {
		skills = skills[:profile.MaxSkills]
	}
	for _, s := range skills {
		rec.Skills = append(rec.Skills, CleanText(s))
	}

	if rec.Industry == "" {
		rec.Industry = InferIndustry(rec.Headline)
	}
	return rec
}

// SplitResultTitle breaks an organic-result title of the form
// "Jane Doe - Platform Engineer at Acme | LinkedIn" into name and headline.
// The headline is empty when the title has no separator.
func SplitResultTitle(title string) (name, headline string) {
	title = strings.TrimSpace(title)
	for _, suffix := range []string{"| LinkedIn", "- LinkedIn"} {
		title = strings.TrimSpace(strings.TrimSuffix(title, suffix))
	}
	name, headline, found := strings.Cut(title, " - ")
	if !found {
		return CleanText(title), ""
	}
	return CleanText(name), CleanText(headline)
}
