package quicklinks

import (
	"context"
	"fmt"
	"log"
	gosync "sync"
	"time"

	"github.com/louisbranch/alfred/internal/id"
	platformerrors "github.com/louisbranch/alfred/internal/platform/errors"
	"github.com/louisbranch/alfred/internal/shell"
	"github.com/louisbranch/alfred/internal/sync"
)

// DefaultSaveDelay coalesces rapid mutations into one persisted write.
const DefaultSaveDelay = 150 * time.Millisecond

// ModelOptions configures a Model. Zero-value fields fall back to
// production defaults; Clock and IDGen exist for tests.
type ModelOptions struct {
	UserID    string
	SaveDelay time.Duration
	Debouncer *sync.Debouncer
	Clock     func() time.Time
	IDGen     func() (string, error)
	Logf      func(string, ...any)
}

// Model owns one widget instance's session state. Every mutation
// validates, applies, emits a partial config patch through the host, and
// schedules a debounced save; reads return defensive copies.
type Model struct {
	mu        gosync.Mutex
	provider  *sync.Provider[Data]
	host      shell.Host
	userID    string
	data      Data
	saveDelay time.Duration
	debouncer *sync.Debouncer
	clock     func() time.Time
	idGen     func() (string, error)
	logf      func(string, ...any)
	closed    bool
}

// NewModel builds a Model around provider and host. Call Load before any
// mutation.
func NewModel(provider *sync.Provider[Data], host shell.Host, opts ModelOptions) (*Model, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	model := &Model{
		provider:  provider,
		host:      host,
		userID:    opts.UserID,
		data:      provider.Default(),
		saveDelay: opts.SaveDelay,
		debouncer: opts.Debouncer,
		clock:     opts.Clock,
		idGen:     opts.IDGen,
		logf:      opts.Logf,
	}
	if model.saveDelay <= 0 {
		model.saveDelay = DefaultSaveDelay
	}
	if model.debouncer == nil {
		model.debouncer = sync.NewDebouncer()
	}
	if model.clock == nil {
		model.clock = time.Now
	}
	if model.idGen == nil {
		model.idGen = id.NewID
	}
	if model.logf == nil {
		model.logf = log.Printf
	}
	return model, nil
}

// Load populates the model from the provider, wrapping any legacy flat
// link list into a single session and persisting that migration as a
// partial update. The returned result carries the provider's degradation
// status; the model is usable even when loading warned or failed.
func (m *Model) Load(ctx context.Context) sync.Result[Data] {
	result := m.provider.Load(ctx, m.userID)

	m.mu.Lock()
	m.data = result.Data
	m.data.MaxLinks = clampMaxLinks(m.data.MaxLinks)
	if m.data.Version == 0 {
		m.data.Version = 1
	}

	migrated := false
	if len(m.data.Sessions) == 0 {
		session := Session{ID: defaultSessionID, Name: defaultSessionName, Links: []Link{}}
		if len(m.data.LegacyLinks) > 0 {
			session.Links = m.data.LegacyLinks
			m.data.LegacyLinks = nil
			migrated = true
		}
		m.data.Sessions = []Session{session}
		m.data.ActiveSessionID = session.ID
	}
	if m.findSessionLocked(m.data.ActiveSessionID) == nil {
		m.data.ActiveSessionID = m.data.Sessions[0].ID
	}

	var patch shell.Patch
	var snapshot Data
	if migrated {
		patch = shell.Patch{
			"sessions":        cloneSessions(m.data.Sessions),
			"activeSessionId": m.data.ActiveSessionID,
			"links":           []Link{},
		}
		snapshot = m.snapshotLocked()
	}
	m.mu.Unlock()

	if migrated {
		m.host.Update(patch)
		if saved := m.provider.Save(ctx, m.userID, snapshot); !saved.Succeeded() {
			m.logf("quicklinks: persist session migration: %s", saved.Err)
		}
	}
	return result
}

// Data returns a deep copy of the current state.
func (m *Model) Data() Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// AddLink validates title and rawURL and prepends the link to sessionID
// (the active session when empty), truncating the session to its link
// cap. URLs are normalized before the per-session duplicate check.
func (m *Model) AddLink(sessionID, title, rawURL string, category Category) (Link, error) {
	validTitle, err := ValidateTitle(title)
	if err != nil {
		return Link{}, err
	}
	normalizedURL, err := NormalizeURL(rawURL)
	if err != nil {
		return Link{}, err
	}
	if category == "" {
		category = CategoryOther
	}

	m.mu.Lock()
	if sessionID == "" {
		sessionID = m.data.ActiveSessionID
	}
	session := m.findSessionLocked(sessionID)
	if session == nil {
		m.mu.Unlock()
		return Link{}, sessionNotFound(sessionID)
	}
	if containsURL(*session, normalizedURL) {
		m.mu.Unlock()
		return Link{}, platformerrors.New(
			platformerrors.CodeLinkDuplicate,
			"this URL is already in the session",
		)
	}
	linkID, err := m.idGen()
	if err != nil {
		m.mu.Unlock()
		return Link{}, fmt.Errorf("generate link id: %w", err)
	}
	link := Link{ID: linkID, Title: validTitle, URL: normalizedURL, Category: category}
	session.Links = append([]Link{link}, session.Links...)
	if len(session.Links) > m.data.MaxLinks {
		session.Links = session.Links[:m.data.MaxLinks]
	}
	patch := shell.Patch{"sessions": cloneSessions(m.data.Sessions)}
	m.mu.Unlock()

	m.emitAndSchedule(patch)
	return link, nil
}

// RecordClick increments the click counter and stamps last use for a link
// in the active session. Unknown IDs are a no-op.
func (m *Model) RecordClick(linkID string) {
	m.mu.Lock()
	session := m.findSessionLocked(m.data.ActiveSessionID)
	if session == nil {
		m.mu.Unlock()
		return
	}
	found := false
	for i := range session.Links {
		if session.Links[i].ID == linkID {
			session.Links[i].Clicks++
			now := m.clock()
			session.Links[i].LastUsed = &now
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return
	}
	patch := shell.Patch{"sessions": cloneSessions(m.data.Sessions)}
	m.mu.Unlock()

	m.emitAndSchedule(patch)
}

// RemoveLink filters the link out of its owning session. Unknown IDs are
// a no-op.
func (m *Model) RemoveLink(linkID string) {
	m.mu.Lock()
	found := false
	for i := range m.data.Sessions {
		links := m.data.Sessions[i].Links
		for j := range links {
			if links[j].ID == linkID {
				m.data.Sessions[i].Links = append(links[:j:j], links[j+1:]...)
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return
	}
	patch := shell.Patch{"sessions": cloneSessions(m.data.Sessions)}
	m.mu.Unlock()

	m.emitAndSchedule(patch)
}

// CreateSession appends a new empty session named by probing "Session {n}"
// past any collision, and activates it.
func (m *Model) CreateSession() (Session, error) {
	m.mu.Lock()
	sessionID, err := m.idGen()
	if err != nil {
		m.mu.Unlock()
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	session := Session{ID: sessionID, Name: nextSessionName(m.data.Sessions), Links: []Link{}}
	m.data.Sessions = append(m.data.Sessions, session)
	m.data.ActiveSessionID = session.ID
	patch := shell.Patch{
		"sessions":        cloneSessions(m.data.Sessions),
		"activeSessionId": m.data.ActiveSessionID,
	}
	m.mu.Unlock()

	m.emitAndSchedule(patch)
	return session, nil
}

// RenameSession validates the new name against every other session
// (case-insensitive) and applies it.
func (m *Model) RenameSession(sessionID, newName string) error {
	m.mu.Lock()
	session := m.findSessionLocked(sessionID)
	if session == nil {
		m.mu.Unlock()
		return sessionNotFound(sessionID)
	}
	name, err := validateSessionName(newName, m.data.Sessions, sessionID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	session.Name = name
	patch := shell.Patch{"sessions": cloneSessions(m.data.Sessions)}
	m.mu.Unlock()

	m.emitAndSchedule(patch)
	return nil
}

// DeleteSession removes a session and its links. The last remaining
// session cannot be deleted; deleting the active session activates the
// first survivor.
func (m *Model) DeleteSession(sessionID string) error {
	m.mu.Lock()
	if len(m.data.Sessions) <= 1 {
		m.mu.Unlock()
		return platformerrors.New(
			platformerrors.CodeSessionLast,
			"cannot delete the last session",
		)
	}
	index := -1
	for i := range m.data.Sessions {
		if m.data.Sessions[i].ID == sessionID {
			index = i
			break
		}
	}
	if index < 0 {
		m.mu.Unlock()
		return sessionNotFound(sessionID)
	}
	m.data.Sessions = append(m.data.Sessions[:index:index], m.data.Sessions[index+1:]...)
	patch := shell.Patch{"sessions": cloneSessions(m.data.Sessions)}
	if m.data.ActiveSessionID == sessionID {
		m.data.ActiveSessionID = m.data.Sessions[0].ID
		patch["activeSessionId"] = m.data.ActiveSessionID
	}
	m.mu.Unlock()

	m.emitAndSchedule(patch)
	return nil
}

// ActivateSession switches the active session.
func (m *Model) ActivateSession(sessionID string) error {
	m.mu.Lock()
	if m.findSessionLocked(sessionID) == nil {
		m.mu.Unlock()
		return sessionNotFound(sessionID)
	}
	if m.data.ActiveSessionID == sessionID {
		m.mu.Unlock()
		return nil
	}
	m.data.ActiveSessionID = sessionID
	patch := shell.Patch{"activeSessionId": m.data.ActiveSessionID}
	m.mu.Unlock()

	m.emitAndSchedule(patch)
	return nil
}

// Flush persists any pending debounced write immediately.
func (m *Model) Flush(ctx context.Context) sync.Result[sync.Void] {
	m.debouncer.Cancel(m.saveKey())
	m.mu.Lock()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	return m.provider.Save(ctx, m.userID, snapshot)
}

// Close cancels any pending save. The model must not be used afterwards.
func (m *Model) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.debouncer.Cancel(m.saveKey())
}

func (m *Model) emitAndSchedule(patch shell.Patch) {
	m.host.Update(patch)
	m.debouncer.Arm(m.saveKey(), m.saveDelay, func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		snapshot := m.snapshotLocked()
		userID := m.userID
		m.mu.Unlock()
		if result := m.provider.Save(context.Background(), userID, snapshot); !result.Succeeded() {
			m.logf("quicklinks: debounced save: %s", result.Err)
		}
	})
}

func (m *Model) saveKey() string {
	return m.provider.LocalKey()
}

func (m *Model) snapshotLocked() Data {
	snapshot := m.data
	snapshot.Sessions = cloneSessions(m.data.Sessions)
	snapshot.LegacyLinks = cloneLinks(m.data.LegacyLinks)
	return snapshot
}

func (m *Model) findSessionLocked(sessionID string) *Session {
	for i := range m.data.Sessions {
		if m.data.Sessions[i].ID == sessionID {
			return &m.data.Sessions[i]
		}
	}
	return nil
}

func sessionNotFound(sessionID string) *platformerrors.Error {
	return platformerrors.WithMetadata(
		platformerrors.CodeSessionNotFound,
		"session not found",
		map[string]string{"session_id": sessionID},
	)
}
