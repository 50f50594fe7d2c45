package locale

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	byName     map[string]string
	byNameOnce sync.Once
)

func buildIndex() {
	byName = make(map[string]string, 300)
	namer := display.English.Regions()
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			region, err := language.ParseRegion(string([]rune{a, b}))
			if err != nil || !region.IsCountry() {
				continue
			}
			iso3 := region.ISO3()
			if iso3 == "" {
				continue
			}
			if name := namer.Name(region); name != "" {
				byName[strings.ToLower(name)] = iso3
			}
		}
	}
}

// NationalityCode returns the ISO 3166-1 alpha-3 code for a country given by
// English name or by alpha-2/alpha-3 code. Unknown countries yield "".
func NationalityCode(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return ""
	}

	if len(country) == 2 || len(country) == 3 {
		if region, err := language.ParseRegion(country); err == nil && region.IsCountry() {
			return region.ISO3()
		}
	}

	byNameOnce.Do(buildIndex)
	return byName[strings.ToLower(country)]
}
