package quicklinks

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	platformerrors "github.com/louisbranch/alfred/internal/platform/errors"
	"github.com/louisbranch/alfred/internal/shell"
	"github.com/louisbranch/alfred/internal/storage"
)

type memLocal struct {
	mu     gosync.Mutex
	values map[string]string
	sets   int
}

func newMemLocal() *memLocal {
	return &memLocal{values: make(map[string]string)}
}

func (s *memLocal) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (s *memLocal) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.sets++
	return nil
}

func (s *memLocal) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memLocal) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

type patchRecorder struct {
	patches []shell.Patch
}

func (r *patchRecorder) host() shell.Host {
	return shell.Host{OnUpdate: func(patch shell.Patch) {
		r.patches = append(r.patches, patch)
	}}
}

func (r *patchRecorder) last(t *testing.T) shell.Patch {
	t.Helper()
	if len(r.patches) == 0 {
		t.Fatal("no patches emitted")
	}
	return r.patches[len(r.patches)-1]
}

func assertPatchKeys(t *testing.T, patch shell.Patch, keys ...string) {
	t.Helper()
	if len(patch) != len(keys) {
		t.Fatalf("patch has %d keys (%v), want %v", len(patch), patch, keys)
	}
	for _, key := range keys {
		if _, ok := patch[key]; !ok {
			t.Fatalf("patch missing key %q: %v", key, patch)
		}
	}
}

func sequentialIDs() func() (string, error) {
	var n int
	return func() (string, error) {
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestModel(t *testing.T, local *memLocal) (*Model, *patchRecorder) {
	t.Helper()
	provider, err := NewProvider(local, nil, "", t.Logf)
	if err != nil {
		t.Fatal(err)
	}
	recorder := &patchRecorder{}
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	model, err := NewModel(provider, recorder.host(), ModelOptions{
		SaveDelay: 10 * time.Millisecond,
		Clock:     func() time.Time { return clock },
		IDGen:     sequentialIDs(),
		Logf:      t.Logf,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(model.Close)
	if result := model.Load(context.Background()); !result.Succeeded() {
		t.Fatalf("load: %s", result.Err)
	}
	return model, recorder
}

func TestLoadSeedsDefaultSession(t *testing.T) {
	model, _ := newTestModel(t, newMemLocal())

	data := model.Data()
	if len(data.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(data.Sessions))
	}
	if data.Sessions[0].Name != "General" || data.Sessions[0].ID != "default" {
		t.Fatalf("default session = %+v", data.Sessions[0])
	}
	if data.ActiveSessionID != "default" {
		t.Fatalf("active session = %q, want default", data.ActiveSessionID)
	}
	if data.MaxLinks != DefaultMaxLinks {
		t.Fatalf("maxLinks = %d, want %d", data.MaxLinks, DefaultMaxLinks)
	}
}

func TestAddLinkPrependsAndPatches(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())

	first, err := model.AddLink("", "First", "example.com/a", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := model.AddLink("", "Second", "example.com/b", CategoryStudy)
	if err != nil {
		t.Fatal(err)
	}

	if first.URL != "https://example.com/a" {
		t.Fatalf("url not normalized: %q", first.URL)
	}
	if first.Category != CategoryOther {
		t.Fatalf("empty category = %q, want %q", first.Category, CategoryOther)
	}
	links := model.Data().Sessions[0].Links
	if len(links) != 2 || links[0].ID != second.ID || links[1].ID != first.ID {
		t.Fatalf("links not newest-first: %+v", links)
	}
	assertPatchKeys(t, recorder.last(t), "sessions")
}

func TestAddLinkRejectsDuplicateURL(t *testing.T) {
	model, _ := newTestModel(t, newMemLocal())

	if _, err := model.AddLink("", "Docs", "https://Example.com/docs", ""); err != nil {
		t.Fatal(err)
	}
	_, err := model.AddLink("", "Docs again", "example.com/docs", "")
	if platformerrors.CodeOf(err) != platformerrors.CodeLinkDuplicate {
		t.Fatalf("error code = %q, want %q", platformerrors.CodeOf(err), platformerrors.CodeLinkDuplicate)
	}
	if got := len(model.Data().Sessions[0].Links); got != 1 {
		t.Fatalf("session has %d links, want 1", got)
	}
}

func TestAddLinkAllowsSameURLAcrossSessions(t *testing.T) {
	model, _ := newTestModel(t, newMemLocal())

	if _, err := model.AddLink("", "Docs", "example.com/docs", ""); err != nil {
		t.Fatal(err)
	}
	session, err := model.CreateSession()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := model.AddLink(session.ID, "Docs", "example.com/docs", ""); err != nil {
		t.Fatalf("same URL in another session rejected: %v", err)
	}
}

func TestAddLinkEnforcesCap(t *testing.T) {
	model, _ := newTestModel(t, newMemLocal())

	var oldest Link
	for i := 0; i < DefaultMaxLinks+1; i++ {
		link, err := model.AddLink("", fmt.Sprintf("Link %d", i), fmt.Sprintf("example.com/%d", i), "")
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			oldest = link
		}
	}

	links := model.Data().Sessions[0].Links
	if len(links) != DefaultMaxLinks {
		t.Fatalf("session has %d links, want %d", len(links), DefaultMaxLinks)
	}
	for _, link := range links {
		if link.ID == oldest.ID {
			t.Fatal("oldest link should have been truncated")
		}
	}
}

func TestAddLinkValidation(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())
	before := len(recorder.patches)

	if _, err := model.AddLink("", "  ", "example.com", ""); platformerrors.CodeOf(err) != platformerrors.CodeLinkTitleLength {
		t.Fatalf("title error code = %q", platformerrors.CodeOf(err))
	}
	if _, err := model.AddLink("", "ok", "not a url", ""); platformerrors.CodeOf(err) != platformerrors.CodeLinkURLInvalid {
		t.Fatalf("url error code = %q", platformerrors.CodeOf(err))
	}
	if _, err := model.AddLink("missing", "ok", "example.com", ""); platformerrors.CodeOf(err) != platformerrors.CodeSessionNotFound {
		t.Fatalf("session error code = %q", platformerrors.CodeOf(err))
	}
	if len(recorder.patches) != before {
		t.Fatal("rejected mutations must not emit patches")
	}
}

func TestRecordClick(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())
	link, err := model.AddLink("", "Docs", "example.com", "")
	if err != nil {
		t.Fatal(err)
	}

	model.RecordClick(link.ID)
	model.RecordClick(link.ID)

	got := model.Data().Sessions[0].Links[0]
	if got.Clicks != 2 {
		t.Fatalf("clicks = %d, want 2", got.Clicks)
	}
	if got.LastUsed == nil {
		t.Fatal("lastUsed not stamped")
	}
	assertPatchKeys(t, recorder.last(t), "sessions")

	before := len(recorder.patches)
	model.RecordClick("unknown")
	if len(recorder.patches) != before {
		t.Fatal("unknown link click must be a no-op")
	}
}

func TestRemoveLinkFromOwningSession(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())
	link, err := model.AddLink("", "Docs", "example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	// Removal works even when the owning session is not active.
	if _, err := model.CreateSession(); err != nil {
		t.Fatal(err)
	}

	model.RemoveLink(link.ID)

	if got := len(model.Data().Sessions[0].Links); got != 0 {
		t.Fatalf("owning session still has %d links", got)
	}
	assertPatchKeys(t, recorder.last(t), "sessions")

	before := len(recorder.patches)
	model.RemoveLink(link.ID)
	if len(recorder.patches) != before {
		t.Fatal("removing an absent link must be a no-op")
	}
}

func TestCreateSessionNamesAndActivates(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())

	session, err := model.CreateSession()
	if err != nil {
		t.Fatal(err)
	}

	if session.Name != "Session 2" {
		t.Fatalf("name = %q, want %q", session.Name, "Session 2")
	}
	data := model.Data()
	if data.ActiveSessionID != session.ID {
		t.Fatalf("active = %q, want %q", data.ActiveSessionID, session.ID)
	}
	assertPatchKeys(t, recorder.last(t), "sessions", "activeSessionId")
}

func TestCreateSessionSkipsCollidingNames(t *testing.T) {
	model, _ := newTestModel(t, newMemLocal())
	second, err := model.CreateSession()
	if err != nil {
		t.Fatal(err)
	}
	if err := model.RenameSession(second.ID, "Session 3"); err != nil {
		t.Fatal(err)
	}

	third, err := model.CreateSession()
	if err != nil {
		t.Fatal(err)
	}
	if third.Name != "Session 4" {
		t.Fatalf("name = %q, want %q", third.Name, "Session 4")
	}
}

func TestRenameSession(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())
	session, err := model.CreateSession()
	if err != nil {
		t.Fatal(err)
	}

	if err := model.RenameSession(session.ID, "  Research  "); err != nil {
		t.Fatal(err)
	}
	if got := model.Data().Sessions[1].Name; got != "Research" {
		t.Fatalf("name = %q, want Research", got)
	}
	assertPatchKeys(t, recorder.last(t), "sessions")

	if err := model.RenameSession(session.ID, "general"); platformerrors.CodeOf(err) != platformerrors.CodeSessionNameTaken {
		t.Fatalf("duplicate rename code = %q", platformerrors.CodeOf(err))
	}
	if err := model.RenameSession(session.ID, "research"); err != nil {
		t.Fatalf("case-change of own name rejected: %v", err)
	}
	if err := model.RenameSession("missing", "X"); platformerrors.CodeOf(err) != platformerrors.CodeSessionNotFound {
		t.Fatalf("missing session code = %q", platformerrors.CodeOf(err))
	}
}

func TestDeleteSession(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())

	if err := model.DeleteSession("default"); platformerrors.CodeOf(err) != platformerrors.CodeSessionLast {
		t.Fatalf("last-session delete code = %q", platformerrors.CodeOf(err))
	}

	session, err := model.CreateSession()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := model.AddLink(session.ID, "Doomed", "example.com/doomed", ""); err != nil {
		t.Fatal(err)
	}

	// session is active; deleting it falls back to the first survivor.
	if err := model.DeleteSession(session.ID); err != nil {
		t.Fatal(err)
	}
	data := model.Data()
	if len(data.Sessions) != 1 || data.Sessions[0].ID != "default" {
		t.Fatalf("sessions after delete = %+v", data.Sessions)
	}
	if data.ActiveSessionID != "default" {
		t.Fatalf("active = %q, want default", data.ActiveSessionID)
	}
	assertPatchKeys(t, recorder.last(t), "sessions", "activeSessionId")

	// Deleting an inactive session leaves the active pointer alone.
	other, err := model.CreateSession()
	if err != nil {
		t.Fatal(err)
	}
	if err := model.ActivateSession("default"); err != nil {
		t.Fatal(err)
	}
	if err := model.DeleteSession(other.ID); err != nil {
		t.Fatal(err)
	}
	assertPatchKeys(t, recorder.last(t), "sessions")

	if err := model.DeleteSession("missing"); platformerrors.CodeOf(err) != platformerrors.CodeSessionNotFound {
		t.Fatalf("missing session code = %q", platformerrors.CodeOf(err))
	}
}

func TestActivateSession(t *testing.T) {
	model, recorder := newTestModel(t, newMemLocal())
	if _, err := model.CreateSession(); err != nil {
		t.Fatal(err)
	}

	if err := model.ActivateSession("default"); err != nil {
		t.Fatal(err)
	}
	assertPatchKeys(t, recorder.last(t), "activeSessionId")

	before := len(recorder.patches)
	if err := model.ActivateSession("default"); err != nil {
		t.Fatal(err)
	}
	if len(recorder.patches) != before {
		t.Fatal("re-activating the active session must not emit a patch")
	}
	if err := model.ActivateSession("missing"); platformerrors.CodeOf(err) != platformerrors.CodeSessionNotFound {
		t.Fatalf("missing session code = %q", platformerrors.CodeOf(err))
	}
}

func TestDebouncedSaveCoalesces(t *testing.T) {
	local := newMemLocal()
	model, _ := newTestModel(t, local)
	baseline := local.setCount()

	for i := 0; i < 5; i++ {
		if _, err := model.AddLink("", fmt.Sprintf("L%d", i), fmt.Sprintf("example.com/%d", i), ""); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, time.Second, func() bool { return local.setCount() > baseline })
	if got := local.setCount() - baseline; got != 1 {
		t.Fatalf("burst of mutations caused %d writes, want 1", got)
	}

	reloaded, err := NewProvider(local, nil, "", t.Logf)
	if err != nil {
		t.Fatal(err)
	}
	result := reloaded.Load(context.Background(), "")
	if !result.Succeeded() {
		t.Fatalf("reload: %s", result.Err)
	}
	if got := len(result.Data.Sessions[0].Links); got != 5 {
		t.Fatalf("persisted %d links, want 5", got)
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	local := newMemLocal()
	model, _ := newTestModel(t, local)

	if _, err := model.AddLink("", "Docs", "example.com", ""); err != nil {
		t.Fatal(err)
	}
	baseline := local.setCount()
	if result := model.Flush(context.Background()); !result.Succeeded() {
		t.Fatalf("flush: %s", result.Err)
	}
	if local.setCount() != baseline+1 {
		t.Fatal("flush did not write")
	}

	// The canceled debounce slot must not fire a second write.
	time.Sleep(30 * time.Millisecond)
	if local.setCount() != baseline+1 {
		t.Fatal("debounced write fired after flush")
	}
}

func TestCloseCancelsPendingSave(t *testing.T) {
	local := newMemLocal()
	model, _ := newTestModel(t, local)

	if _, err := model.AddLink("", "Docs", "example.com", ""); err != nil {
		t.Fatal(err)
	}
	baseline := local.setCount()
	model.Close()

	time.Sleep(30 * time.Millisecond)
	if local.setCount() != baseline {
		t.Fatal("save fired after Close")
	}
}

func TestRemovalCancelsPendingSave(t *testing.T) {
	local := newMemLocal()
	model, _ := newTestModel(t, local)
	provider, err := NewProvider(local, nil, "", t.Logf)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := model.AddLink("", "Docs", "example.com", ""); err != nil {
		t.Fatal(err)
	}
	// Widget removal order: teardown closes the model, then the shell
	// clears the instance's data.
	model.Close()
	if result := provider.Clear(context.Background(), ""); !result.Succeeded() {
		t.Fatalf("clear: %s", result.Err)
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := local.Get(provider.LocalKey()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("cleared key was rewritten by the pending save: err=%v", err)
	}
}

func TestLoadMigratesLegacyFlatLinks(t *testing.T) {
	local := newMemLocal()
	provider, err := NewProvider(local, nil, "", t.Logf)
	if err != nil {
		t.Fatal(err)
	}
	legacy := `{"version":1,"title":"Quick Links","maxLinks":12,"openInNewTab":true,"showCategories":true,` +
		`"links":[{"id":"l1","title":"Old","url":"https://example.com","category":"other","clicks":4}]}`
	if err := local.Set(provider.LocalKey(), legacy); err != nil {
		t.Fatal(err)
	}

	recorder := &patchRecorder{}
	model, err := NewModel(provider, recorder.host(), ModelOptions{SaveDelay: 10 * time.Millisecond, Logf: t.Logf})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(model.Close)
	if result := model.Load(context.Background()); !result.Succeeded() {
		t.Fatalf("load: %s", result.Err)
	}

	data := model.Data()
	if len(data.Sessions) != 1 || data.Sessions[0].Name != "General" || data.Sessions[0].ID != "default" {
		t.Fatalf("migrated sessions = %+v", data.Sessions)
	}
	if len(data.Sessions[0].Links) != 1 || data.Sessions[0].Links[0].Clicks != 4 {
		t.Fatalf("migrated links = %+v", data.Sessions[0].Links)
	}
	if len(data.LegacyLinks) != 0 {
		t.Fatal("legacy links not cleared after migration")
	}

	patch := recorder.last(t)
	assertPatchKeys(t, patch, "sessions", "activeSessionId", "links")
	if links, ok := patch["links"].([]Link); !ok || len(links) != 0 {
		t.Fatalf("migration patch links = %v, want empty list", patch["links"])
	}

	// The migration persists without waiting for a mutation.
	stored, err := local.Get(provider.LocalKey())
	if err != nil {
		t.Fatal(err)
	}
	migrated, err := Decode([]byte(stored))
	if err != nil {
		t.Fatal(err)
	}
	if len(migrated.Sessions) != 1 || len(migrated.LegacyLinks) != 0 {
		t.Fatalf("persisted payload = %+v", migrated)
	}
}

func TestLoadRepairsDanglingActiveSession(t *testing.T) {
	local := newMemLocal()
	provider, err := NewProvider(local, nil, "", t.Logf)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := Encode(Data{
		Version:         1,
		Sessions:        []Session{{ID: "s1", Name: "General", Links: []Link{}}},
		ActiveSessionID: "gone",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := local.Set(provider.LocalKey(), string(payload)); err != nil {
		t.Fatal(err)
	}

	model, err := NewModel(provider, shell.Host{}, ModelOptions{Logf: t.Logf})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(model.Close)
	model.Load(context.Background())

	if got := model.Data().ActiveSessionID; got != "s1" {
		t.Fatalf("active = %q, want s1", got)
	}
}

func TestDataReturnsDefensiveCopy(t *testing.T) {
	model, _ := newTestModel(t, newMemLocal())
	if _, err := model.AddLink("", "Docs", "example.com", ""); err != nil {
		t.Fatal(err)
	}

	snapshot := model.Data()
	snapshot.Sessions[0].Links[0].Title = "tampered"
	snapshot.Sessions[0].Name = "tampered"

	fresh := model.Data()
	if fresh.Sessions[0].Links[0].Title == "tampered" || fresh.Sessions[0].Name == "tampered" {
		t.Fatal("snapshot mutation leaked into model state")
	}
}

var _ storage.LocalStore = (*memLocal)(nil)
