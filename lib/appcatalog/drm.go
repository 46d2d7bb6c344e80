package appcatalog

import "github.com/samber/lo"

// drmProtectedApps play content that shows up black in screen captures.
var drmProtectedApps = []string{
	"TV",    // Apple TV
	"Music", // Apple Music
	"Netflix",
	"Disney+",
	"Amazon Prime Video",
	"HBO Max",
	"Hulu",
	"Spotify",
	"Paramount+",
	"Apple TV+",
	"Peacock",
	"Discovery+",
	"ESPN+",
	"YouTube TV",
}

// IsKnownDRMProtected reports whether app is on the list of applications known
// to protect their output. It is advisory only.
func IsKnownDRMProtected(app string) bool {
	return lo.Contains(drmProtectedApps, app)
}

// DRMProtectedApps returns a copy of the advisory list.
func DRMProtectedApps() []string {
	return append([]string(nil), drmProtectedApps...)
}
