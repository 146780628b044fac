package session

import (
	"net/url"
	"strings"
)

// Entry describes how a page load entered the application, decided by the URL
// fragment. The three flows are mutually exclusive: recovery wins over OAuth,
// and both win over default session resolution.
type Entry struct {
	// Recovery is set when the fragment carries a password-recovery redirect.
	Recovery bool
	// Raw is the fragment without the leading '#', preserved for the
	// reset-password view.
	Raw string
	// AccessToken and RefreshToken are set when the fragment carries an OAuth
	// token pair.
	AccessToken  string
	RefreshToken string
}

// ParseFragment classifies a URL fragment. A malformed fragment yields a zero
// Entry, which sends initialization down the default resolution path.
func ParseFragment(fragment string) Entry {
	raw := strings.TrimPrefix(fragment, "#")
	if raw == "" {
		return Entry{}
	}

	if strings.Contains(raw, "type=recovery") {
		return Entry{Recovery: true, Raw: raw}
	}

	if strings.Contains(raw, "access_token=") {
		params, err := url.ParseQuery(raw)
		if err != nil {
			return Entry{}
		}
		accessToken := params.Get("access_token")
		if accessToken == "" {
			return Entry{}
		}
		return Entry{
			Raw:          raw,
			AccessToken:  accessToken,
			RefreshToken: params.Get("refresh_token"),
		}
	}

	return Entry{}
}
