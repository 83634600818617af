// Package ingestion implements the incremental pipeline: discovering new
// posts for tracked accounts, gating them for admission, and persisting the
// ones that pass.
package ingestion

import (
	"context"
	"strings"

	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
)

// AdmissionGate runs the ordered duplicate/keyword checks a candidate post
// must pass before the costly full scrape and persistence are attempted. The
// checks are idempotent, so re-running them after a downstream failure is
// safe.
type AdmissionGate struct {
	posts models.PostRepository
}

// NewAdmissionGate builds a gate over the post repository.
func NewAdmissionGate(posts models.PostRepository) *AdmissionGate {
	return &AdmissionGate{posts: posts}
}

// Admit returns nil when the candidate passes every gate, or a typed
// rejection (Duplicate, KeywordMismatch) / PersistenceError otherwise.
func (g *AdmissionGate) Admit(ctx context.Context, candidate *models.MediaPost, account *models.TrackedAccount) error {
	// Gate 1: exact URL match.
	existing, err := g.posts.GetByURL(ctx, candidate.URL)
	if err != nil {
		return &platform.Error{Code: platform.CodePersistenceError, Message: "lookup by URL", URL: candidate.URL, Err: err}
	}
	if existing != nil {
		return &platform.Error{Code: platform.CodeDuplicate, Message: "post already persisted", URL: candidate.URL, VideoID: candidate.ID}
	}

	// Gate 2: (id, platform) match catches the same content reached through a
	// different URL shape (short link vs canonical link).
	if candidate.ID != "" {
		existing, err = g.posts.GetByVideoID(ctx, candidate.ID, candidate.Platform)
		if err != nil {
			return &platform.Error{Code: platform.CodePersistenceError, Message: "lookup by video id", URL: candidate.URL, VideoID: candidate.ID, Err: err}
		}
		if existing != nil {
			return &platform.Error{Code: platform.CodeDuplicate, Message: "content id already persisted", URL: candidate.URL, VideoID: candidate.ID}
		}
	}

	// Gate 3: keyword admission for keyword-typed accounts.
	if account != nil && account.AccountType == models.AccountTypeKeyword {
		if !MatchesKeyword(candidate.Description, account.Keyword) {
			return &platform.Error{Code: platform.CodeKeywordMismatch, Message: "description matched no keyword", URL: candidate.URL, VideoID: candidate.ID}
		}
	}

	return nil
}

// MatchesKeyword reports whether the description matches any term of the
// comma-separated keyword list. Each term matches as a plain substring, as
// #term, or as @term, case-insensitively; terms are OR'd.
func MatchesKeyword(description, keywords string) bool {
	desc := strings.ToLower(description)

	for _, term := range strings.Split(keywords, ",") {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(desc, term) ||
			strings.Contains(desc, "#"+term) ||
			strings.Contains(desc, "@"+term) {
			return true
		}
	}

	return false
}
