package platform

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/cliptrack/cliptrack/internal/models"
)

// idPatterns lists, per platform, the URL shapes we can recover a content id
// from. Order matters: specific shapes come before loose digit fallbacks so
// incidental numbers elsewhere in a URL are not misread as ids. The first
// match wins.
var idPatterns = map[models.Platform][]*regexp.Regexp{
	models.PlatformTikTok: {
		regexp.MustCompile(`@[\w.\-]+/video/(\d+)`),
		regexp.MustCompile(`@[\w.\-]+/photo/(\d+)`),
		regexp.MustCompile(`/video/(\d+)`),
		regexp.MustCompile(`/v/(\d+)`),
		regexp.MustCompile(`/embed/(\d+)`),
		regexp.MustCompile(`(\d{19})`), // bare aweme id anywhere in the URL
	},
	models.PlatformInstagram: {
		regexp.MustCompile(`/reels?/([A-Za-z0-9_\-]+)`),
		regexp.MustCompile(`/p/([A-Za-z0-9_\-]+)`),
		regexp.MustCompile(`/tv/([A-Za-z0-9_\-]+)`),
	},
	models.PlatformYouTube: {
		regexp.MustCompile(`/shorts/([A-Za-z0-9_\-]{11})`),
		regexp.MustCompile(`[?&]v=([A-Za-z0-9_\-]{11})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_\-]{11})`),
		regexp.MustCompile(`/embed/([A-Za-z0-9_\-]{11})`),
	},
}

// queryIDParams are checked, in order, when no pattern matches.
var queryIDParams = []string{"video_id", "aweme_id", "id"}

// ExtractID recovers the platform-scoped content id from a user-supplied
// link. A miss returns ok=false; it is never an error condition here, callers
// surface it as an unparseable-URL failure.
func ExtractID(p models.Platform, rawURL string) (string, bool) {
	for _, re := range idPatterns[p] {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}

	// Fallback: known query-string parameter names.
	if u, err := url.Parse(rawURL); err == nil {
		q := u.Query()
		for _, key := range queryIDParams {
			if v := q.Get(key); v != "" {
				return v, true
			}
		}
	}

	return "", false
}

// DetectPlatform classifies a URL by hostname substring. Unknown hosts return
// ok=false.
func DetectPlatform(rawURL string) (models.Platform, bool) {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)

	switch {
	case strings.Contains(host, "tiktok"):
		return models.PlatformTikTok, true
	case strings.Contains(host, "instagram") || strings.Contains(host, "instagr.am"):
		return models.PlatformInstagram, true
	case strings.Contains(host, "youtube") || strings.Contains(host, "youtu.be"):
		return models.PlatformYouTube, true
	}

	return "", false
}
