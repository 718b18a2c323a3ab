package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/scoutly/prospector/internal/profile"
)

// Selector tables per field. LinkedIn ships several page generations at
// once, so every field carries selectors for each known layout, newest
// first. Order matters: the first selector that yields an acceptable value
// wins.
var (
	nameSelectors = []string{
		"h1.text-heading-xlarge",
		".pv-text-details__left-panel h1",
		".top-card-layout__title",
		"main h1",
	}
	headlineSelectors = []string{
		".pv-text-details__left-panel .text-body-medium",
		"div.text-body-medium.break-words",
		".top-card-layout__headline",
		".top-card__headline",
	}
	aboutSelectors = []string{
		"#about ~ div .inline-show-more-text",
		".pv-about__summary-text",
		"section.summary .core-section-container__content",
		".core-section-container[data-section=summary] p",
	}
	locationSelectors = []string{
		".pv-text-details__left-panel .text-body-small",
		"span.text-body-small.inline.t-black--light.break-words",
		".top-card-layout__first-subline .top-card__subline-item",
		".top-card__subline-item",
	}
	industrySelectors = []string{
		".pv-text-details__right-panel .text-body-small",
		".top-card__industry",
	}

	experienceItemSelectors = []string{
		"#experience ~ .pvs-list__outer-container > ul > li",
		"section#experience-section li.pv-entity__position-group-pager",
		"section[data-section=experience] li.profile-section-card",
	}
	educationItemSelectors = []string{
		"#education ~ .pvs-list__outer-container > ul > li",
		"section#education-section li.pv-education-entity",
		"section[data-section=educationsDetails] li.profile-section-card",
	}
	skillSelectors = []string{
		"#skills ~ .pvs-list__outer-container .mr1 span[aria-hidden=true]",
		".pv-skill-category-entity__name-text",
		"section[data-section=skills] .skill-pill",
	}
)

// FromDOM runs the ruleset against a rendered profile page and returns the
// raw (unassembled) record. Missing fields are left empty; the assembler
// decides whether the record as a whole is usable.
func FromDOM(doc *goquery.Document) profile.Record {
	rec := profile.Record{
		FullName: domField(doc, nameSelectors, nil),
		Headline: domField(doc, headlineSelectors, nil),
		About:    domField(doc, aboutSelectors, MinLen(50)),
		Location: domField(doc, locationSelectors, ContainsComma),
		Industry: domField(doc, industrySelectors, nil),
	}

	rec.Experience = domExperience(doc)
	rec.Education = domEducation(doc)
	rec.Skills = domSkills(doc)

	if rec.Industry == "" {
		rec.Industry = InferIndustry(rec.Headline)
	}
	return rec
}

func domField(doc *goquery.Document, selectors []string, accept Predicate) string {
	accessors := make([]Accessor, len(selectors))
	for i, sel := range selectors {
		sel := sel
		accessors[i] = func() (string, bool) {
			s := doc.Find(sel).First()
			if s.Length() == 0 {
				return "", false
			}
			return s.Text(), true
		}
	}
	v, _ := FirstMatch(accessors, accept)
	return v
}

// domExperience collects at most MaxExperience positions, truncating during
// iteration so a 500-entry profile never costs more than the cap.
func domExperience(doc *goquery.Document) []profile.Experience {
	var out []profile.Experience
	for _, sel := range experienceItemSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
			exp := profile.Experience{
				Title:       itemField(item, ".mr1 span[aria-hidden=true]", "h3", ".profile-section-card__title"),
				Company:     itemField(item, ".t-14.t-normal span[aria-hidden=true]", ".pv-entity__secondary-title", ".profile-section-card__subtitle"),
				Duration:    itemField(item, ".t-14.t-normal.t-black--light span[aria-hidden=true]", ".pv-entity__date-range span:nth-child(2)", ".date-range"),
				Description: itemField(item, ".inline-show-more-text", ".pv-entity__description", ".show-more-less-text"),
			}
			if exp.Title == "" && exp.Company == "" {
				return true
			}
			out = append(out, exp)
			return len(out) < profile.MaxExperience
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func domEducation(doc *goquery.Document) []profile.Education {
	var out []profile.Education
	for _, sel := range educationItemSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
			edu := profile.Education{
				School: itemField(item, ".mr1 span[aria-hidden=true]", "h3.pv-entity__school-name", ".profile-section-card__title"),
				Degree: itemField(item, ".t-14.t-normal span[aria-hidden=true]", ".pv-entity__degree-name .pv-entity__comma-item", ".profile-section-card__subtitle"),
				Field:  itemField(item, ".pv-entity__fos .pv-entity__comma-item", ".education__item--field-of-study"),
			}
			if edu.School == "" {
				return true
			}
			out = append(out, edu)
			return len(out) < profile.MaxEducation
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func domSkills(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]bool)
	for _, sel := range skillSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
			s := CleanText(item.Text())
			if s == "" || seen[s] {
				return true
			}
			seen[s] = true
			out = append(out, s)
			return len(out) < profile.MaxSkills
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

// itemField tries selectors within a list item, first non-blank wins.
func itemField(item *goquery.Selection, selectors ...string) string {
	accessors := make([]Accessor, len(selectors))
	for i, sel := range selectors {
		sel := sel
		accessors[i] = func() (string, bool) {
			s := item.Find(sel).First()
			if s.Length() == 0 {
				return "", false
			}
			return s.Text(), true
		}
	}
	v, _ := FirstMatch(accessors, nil)
	return v
}
