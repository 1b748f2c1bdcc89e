package quicklinks

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	platformerrors "github.com/louisbranch/alfred/internal/platform/errors"
)

// WidgetType is the registry key for this widget.
const WidgetType = "proflow"

const (
	titleMinLen = 1
	titleMaxLen = 80

	sessionNameMinLen = 1
	sessionNameMaxLen = 40

	// DefaultMaxLinks caps a session's link list unless configured.
	DefaultMaxLinks = 12
	maxLinksCeiling = 100

	defaultSessionID   = "default"
	defaultSessionName = "General"
)

// Category tags what kind of resource a link points to.
type Category string

const (
	CategoryClass   Category = "class"
	CategoryStudy   Category = "study"
	CategoryLibrary Category = "library"
	CategoryTool    Category = "tool"
	CategoryOther   Category = "other"
)

// Link is one quick link within a session.
type Link struct {
	ID       string
	Title    string
	URL      string
	Category Category
	Clicks   int
	LastUsed *time.Time // nil until first click
}

// Session is a named, user-created grouping of links.
type Session struct {
	ID    string
	Name  string
	Links []Link
}

// Data is the widget's persisted payload.
//
// LegacyLinks carries the pre-session flat list found in old payloads; it
// is only ever non-empty on load, before the one-shot session migration
// wraps it.
type Data struct {
	Version         int
	Title           string
	MaxLinks        int
	OpenInNewTab    bool
	ShowCategories  bool
	Sessions        []Session
	ActiveSessionID string
	LegacyLinks     []Link
}

// DefaultData seeds a first-run widget with one empty session.
func DefaultData() Data {
	return Data{
		Version:        1,
		Title:          "Quick Links",
		MaxLinks:       DefaultMaxLinks,
		OpenInNewTab:   true,
		ShowCategories: true,
		Sessions: []Session{
			{ID: defaultSessionID, Name: defaultSessionName, Links: []Link{}},
		},
		ActiveSessionID: defaultSessionID,
	}
}

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// NormalizeURL trims raw, prepends https:// when a scheme is syntactically
// absent, parses it as an absolute URL and lower-cases the host component.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", platformerrors.New(platformerrors.CodeLinkURLInvalid, "please enter a valid URL")
	}

	candidate := trimmed
	if !schemePattern.MatchString(trimmed) {
		candidate = "https://" + trimmed
	}

	parsed, err := url.Parse(candidate)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return "", platformerrors.New(platformerrors.CodeLinkURLInvalid, "please enter a valid URL")
	}
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String(), nil
}

// ValidateTitle trims and length-checks a link title.
func ValidateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if count := utf8.RuneCountInString(title); count < titleMinLen || count > titleMaxLen {
		return "", platformerrors.New(
			platformerrors.CodeLinkTitleLength,
			fmt.Sprintf("title must be %d-%d characters", titleMinLen, titleMaxLen),
		)
	}
	return title, nil
}

// foldName reduces a session name to its trimmed, case-folded form for
// uniqueness comparison.
func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// validateSessionName trims and validates a candidate session name against
// its siblings, excluding excludeID (the session being renamed).
func validateSessionName(raw string, sessions []Session, excludeID string) (string, error) {
	name := strings.TrimSpace(raw)
	if count := utf8.RuneCountInString(name); count < sessionNameMinLen || count > sessionNameMaxLen {
		return "", platformerrors.New(
			platformerrors.CodeSessionNameLength,
			fmt.Sprintf("name must be %d-%d characters", sessionNameMinLen, sessionNameMaxLen),
		)
	}
	folded := foldName(name)
	for _, session := range sessions {
		if session.ID == excludeID {
			continue
		}
		if foldName(session.Name) == folded {
			return "", platformerrors.WithMetadata(
				platformerrors.CodeSessionNameTaken,
				"name already exists, choose a different one",
				map[string]string{"name": name},
			)
		}
	}
	return name, nil
}

// nextSessionName probes "Session {n}" for increasing n starting at
// count+1 until no case-insensitive collision exists.
func nextSessionName(sessions []Session) string {
	existing := make(map[string]bool, len(sessions))
	for _, session := range sessions {
		existing[foldName(session.Name)] = true
	}
	n := len(sessions) + 1
	for existing[foldName(fmt.Sprintf("Session %d", n))] {
		n++
	}
	return fmt.Sprintf("Session %d", n)
}

// containsURL reports whether a session already holds the normalized URL.
func containsURL(session Session, normalizedURL string) bool {
	for _, link := range session.Links {
		if link.URL == normalizedURL {
			return true
		}
	}
	return false
}

// clampMaxLinks keeps the configured ceiling within 1..100, defaulting
// when unset.
func clampMaxLinks(value int) int {
	if value <= 0 {
		return DefaultMaxLinks
	}
	if value > maxLinksCeiling {
		return maxLinksCeiling
	}
	return value
}

func cloneLinks(links []Link) []Link {
	cloned := make([]Link, len(links))
	copy(cloned, links)
	for i := range cloned {
		if cloned[i].LastUsed != nil {
			lastUsed := *cloned[i].LastUsed
			cloned[i].LastUsed = &lastUsed
		}
	}
	return cloned
}

func cloneSessions(sessions []Session) []Session {
	cloned := make([]Session, len(sessions))
	for i, session := range sessions {
		cloned[i] = Session{ID: session.ID, Name: session.Name, Links: cloneLinks(session.Links)}
	}
	return cloned
}
