package constants

import "strings"

// UnknownCountry labels documents whose country could not be detected.
const UnknownCountry = "Unknown"

// SupportedCountries is the default country list. Detection scans it in order.
var SupportedCountries = []string{
	"United Arab Emirates", "Saudi Arabia", "Kuwait", "Qatar",
	"Bahrain", "Oman", "Jordan", "Lebanon", "Egypt", "Morocco",
	"Tunisia", "Algeria", "Iraq", "Yemen", "Syria", "Sudan",
	"Libya", "Palestine",
}

// CanonicalCountry returns the list's spelling of name, matched case-insensitively.
func CanonicalCountry(name string, countries []string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range countries {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}
