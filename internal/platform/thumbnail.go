package platform

import "strings"

// browserSafeExts are scanned in this exact order; the first candidate
// matching any of them wins.
var browserSafeExts = []string{".jpeg", ".jpg", ".png", ".webp"}

// legacyExts are formats a downstream proxy is assumed to transcode.
var legacyExts = []string{".heic"}

// SelectThumbnail picks one cover URL out of every candidate a provider
// exposes. Priority cascade: first browser-safe extension match, then a
// legacy-format match, then the first candidate in original order, then
// nothing. The cascade is deterministic so downstream snapshots stay stable
// across re-scrapes.
func SelectThumbnail(candidates []string) string {
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != "" {
			urls = append(urls, c)
		}
	}
	if len(urls) == 0 {
		return ""
	}

	for _, ext := range browserSafeExts {
		for _, u := range urls {
			if strings.Contains(strings.ToLower(u), ext) {
				return u
			}
		}
	}

	for _, ext := range legacyExts {
		for _, u := range urls {
			if strings.Contains(strings.ToLower(u), ext) {
				return u
			}
		}
	}

	return urls[0]
}
