package match

import (
	"regexp"
	"strings"
)

// companySuffixRe strips legal suffixes from company names.
var companySuffixRe = regexp.MustCompile(`(?i),?\s*(Inc\.?|LLC|Ltd\.?|Limited|Corporation|Corp\.?|GmbH|SA|SAS|BV|PLC)$`)

var (
	leadingTheRe = regexp.MustCompile(`(?i)^the\s+`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	remoteRe     = regexp.MustCompile(`(?i)remote`)
	cityRegionRe = regexp.MustCompile(`^([A-Za-z .'-]+?)(?:,\s*([A-Za-z .'-]{2,}?))?(?:,\s*([A-Za-z .'-]{2,}))?$`)
)

var countryAliases = map[string]string{
	"United States":            "USA",
	"United States of America": "USA",
	"US":                       "USA",
	"U.S.":                     "USA",
	"U.S.A.":                   "USA",
	"UK":                       "United Kingdom",
	"U.K.":                     "United Kingdom",
}

var stateAbbr = map[string]string{
	"CA": "California", "NY": "New York", "TX": "Texas", "WA": "Washington",
	"MA": "Massachusetts", "IL": "Illinois", "CO": "Colorado",
}

// NormalizeCompany canonicalizes a company name: mapping override, legal
// suffix removal, leading-article removal, whitespace collapse, and title
// casing for all-caps/all-lower names. Idempotent.
func NormalizeCompany(name string, mapping map[string]string) string {
	raw := strings.TrimSpace(name)
	if mapped, ok := mapping[strings.ToLower(raw)]; ok {
		return mapped
	}
	base := companySuffixRe.ReplaceAllString(raw, "")
	base = leadingTheRe.ReplaceAllString(base, "")
	base = strings.TrimSpace(multiSpaceRe.ReplaceAllString(base, " "))
	if base == strings.ToUpper(base) || base == strings.ToLower(base) {
		base = titleCase(base)
	}
	return base
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// NormalizeLocation canonicalizes a raw location string to
// "City, Region, Country" form: remote detection, US state abbreviation
// expansion, country aliasing. Unparseable input passes through trimmed.
func NormalizeLocation(loc string) string {
	s := strings.TrimSpace(loc)
	if s == "" {
		return ""
	}
	if remoteRe.MatchString(s) {
		return "Remote"
	}
	m := cityRegionRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	city := strings.TrimSpace(m[1])
	region := strings.TrimSpace(m[2])
	country := strings.TrimSpace(m[3])

	if alias, ok := countryAliases[country]; ok {
		country = alias
	}
	if full, ok := stateAbbr[strings.ToUpper(region)]; ok {
		region = full
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{city, region, country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// NormalizeRecords fills normalized company and location fields on records
// that lack them. Idempotent; safe to re-run on already-normalized batches.
func NormalizeRecords(records []*PostingRecord, companyMap map[string]string) int {
	updated := 0
	for _, rec := range records {
		changed := false
		if rec.CompanyName != "" && rec.CompanyNameNormalized == "" {
			if norm := NormalizeCompany(rec.CompanyName, companyMap); norm != rec.CompanyName {
				rec.CompanyNameNormalized = norm
				changed = true
			}
		}
		if rec.Location != "" && rec.LocationNormalized == "" {
			if norm := NormalizeLocation(rec.Location); norm != "" {
				rec.LocationNormalized = norm
				changed = true
			}
		}
		if changed {
			updated++
		}
	}
	return updated
}
