package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	platformerrors "github.com/louisbranch/alfred/internal/platform/errors"
	"github.com/louisbranch/alfred/internal/storage"
)

const (
	// Namespace prefixes every local cache key.
	Namespace = "alfred"

	defaultInstanceID = "default"
	defaultVersion    = 1
)

var tracer = otel.Tracer("github.com/louisbranch/alfred/internal/sync")

// Options configures a Provider for one widget type with payload type D.
//
// Encode and Decode form the round-trip codec the widget supplies for its
// payload; the provider never inspects the payload's shape beyond these two
// functions. Remote may be nil, in which case the provider operates in
// local-only mode regardless of user identity.
type Options[D any] struct {
	WidgetType string
	InstanceID string
	Version    int
	Defaults   func() D
	Encode     func(D) ([]byte, error)
	Decode     func([]byte) (D, error)
	Local      storage.LocalStore
	Remote     storage.RemoteStore
	Logf       func(string, ...any)
}

// Provider reconciles local and remote persistence for one widget type. It
// is a stateless strategy parameterized by the key material passed into each
// call; one Provider serves every render of its widget type.
type Provider[D any] struct {
	widgetType string
	instanceID string
	localKey   string
	defaults   func() D
	encode     func(D) ([]byte, error)
	decode     func([]byte) (D, error)
	local      storage.LocalStore
	remote     storage.RemoteStore
	logf       func(string, ...any)
}

// NewProvider validates opts and builds a Provider.
func NewProvider[D any](opts Options[D]) (*Provider[D], error) {
	opts.WidgetType = strings.TrimSpace(opts.WidgetType)
	if opts.WidgetType == "" {
		return nil, fmt.Errorf("widget type is required")
	}
	if opts.Defaults == nil {
		return nil, fmt.Errorf("defaults function is required")
	}
	if opts.Encode == nil || opts.Decode == nil {
		return nil, fmt.Errorf("encode and decode functions are required")
	}
	if opts.Local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	instanceID := strings.TrimSpace(opts.InstanceID)
	if instanceID == "" {
		instanceID = defaultInstanceID
	}
	version := opts.Version
	if version <= 0 {
		version = defaultVersion
	}
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Provider[D]{
		widgetType: opts.WidgetType,
		instanceID: instanceID,
		localKey:   fmt.Sprintf("%s:%s:%s:v%d", Namespace, opts.WidgetType, instanceID, version),
		defaults:   opts.Defaults,
		encode:     opts.Encode,
		decode:     opts.Decode,
		local:      opts.Local,
		remote:     opts.Remote,
		logf:       logf,
	}, nil
}

// WidgetType identifies the widget type this provider serves.
func (p *Provider[D]) WidgetType() string {
	return p.widgetType
}

// LocalKey exposes the versioned local cache key.
func (p *Provider[D]) LocalKey() string {
	return p.localKey
}

// Default returns the deterministic first-run payload.
func (p *Provider[D]) Default() D {
	return p.defaults()
}

// Load reads widget data, local baseline first.
//
// Anonymous callers get the local baseline. For identified users a remote
// hit overwrites the local cache and wins (last-writer-wins: local edits
// made offline since the last successful save are discarded); a remote miss
// or error degrades to the local baseline, the error case with a warning.
func (p *Provider[D]) Load(ctx context.Context, userID string) Result[D] {
	ctx, span := p.startSpan(ctx, "sync.load")
	defer span.End()

	local := p.loadLocal()

	userID = strings.TrimSpace(userID)
	if userID == "" || p.remote == nil {
		return Ok(local)
	}

	record, err := p.remote.Select(ctx, userID, p.instanceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Ok(local)
		}
		p.logf("%s: remote load failed, using cached data: %v", p.widgetType, err)
		return Warn(local, remoteError("load", err).Error())
	}

	data, err := p.decode(record.Payload)
	if err != nil {
		p.logf("%s: remote payload decode failed, using cached data: %v", p.widgetType, err)
		return Warn(local, remoteError("decode", err).Error())
	}

	if err := p.storeLocal(data); err != nil {
		// Remote data still wins for this session; only the cache refresh
		// is lost.
		p.logf("%s: local cache refresh failed: %v", p.widgetType, err)
	}
	return Ok(data)
}

// Save writes widget data, local first and unconditionally.
//
// A local failure fails the operation and the caller's in-memory state
// stays authoritative. Remote failures are downgraded to a warning because
// the local write already guarantees durability for the session.
func (p *Provider[D]) Save(ctx context.Context, userID string, data D) Result[Void] {
	ctx, span := p.startSpan(ctx, "sync.save")
	defer span.End()

	payload, err := p.encode(data)
	if err != nil {
		encodeErr := platformerrors.Wrap(platformerrors.CodeSyncLocalEncode, "encode widget payload", err)
		p.logf("%s: save failed: %v", p.widgetType, err)
		return Fail[Void](encodeErr.Error())
	}
	if err := p.local.Set(p.localKey, string(payload)); err != nil {
		writeErr := platformerrors.Wrap(platformerrors.CodeSyncLocalWrite, "write local cache", err)
		p.logf("%s: save failed: %v", p.widgetType, err)
		return Fail[Void](writeErr.Error())
	}

	userID = strings.TrimSpace(userID)
	if userID == "" || p.remote == nil {
		return Ok(Void{})
	}

	if err := p.remote.Upsert(ctx, storage.Record{
		UserID:     userID,
		InstanceID: p.instanceID,
		WidgetType: p.widgetType,
		Payload:    payload,
	}); err != nil {
		p.logf("%s: remote save failed: %v", p.widgetType, err)
		return Warn(Void{}, remoteError("save", err).Error())
	}
	return Ok(Void{})
}

// Migrate pushes local data to the remote store exactly once per user.
//
// If the user already has a remote row the call is a no-op, so a returning
// user's remote state is never clobbered by a fresh device's defaults. A
// failed migration never deletes local data and may be retried.
func (p *Provider[D]) Migrate(ctx context.Context, userID string) Result[Void] {
	ctx, span := p.startSpan(ctx, "sync.migrate")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		err := platformerrors.New(platformerrors.CodeSyncUserRequired, "migration requires a user id")
		p.logf("%s: migration failed: %v", p.widgetType, err)
		return Fail[Void](err.Error())
	}
	if p.remote == nil {
		return Ok(Void{})
	}

	_, err := p.remote.Select(ctx, userID, p.instanceID)
	if err == nil {
		// Remote data already exists; never overwrite it.
		return Ok(Void{})
	}
	if !errors.Is(err, storage.ErrNotFound) {
		p.logf("%s: migration check failed: %v", p.widgetType, err)
		return Fail[Void](remoteError("migrate", err).Error())
	}

	raw, err := p.local.Get(p.localKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Nothing cached locally means nothing worth migrating.
			return Ok(Void{})
		}
		readErr := platformerrors.Wrap(platformerrors.CodeSyncLocalRead, "read local cache", err)
		p.logf("%s: migration failed: %v", p.widgetType, err)
		return Fail[Void](readErr.Error())
	}
	data, err := p.decode([]byte(raw))
	if err != nil {
		p.logf("%s: migration skipped corrupt local payload: %v", p.widgetType, err)
		return Ok(Void{})
	}
	if p.equalsDefaults(data) {
		return Ok(Void{})
	}

	result := p.Save(ctx, userID, data)
	if result.Status == StatusWarning {
		// The remote push is the whole point of migration; report the
		// degradation as a retriable failure.
		return Fail[Void](result.Err)
	}
	return result
}

// Clear removes the instance's data on teardown: local unconditionally,
// remote best-effort.
func (p *Provider[D]) Clear(ctx context.Context, userID string) Result[Void] {
	ctx, span := p.startSpan(ctx, "sync.clear")
	defer span.End()

	if err := p.local.Remove(p.localKey); err != nil {
		writeErr := platformerrors.Wrap(platformerrors.CodeSyncLocalWrite, "remove local cache", err)
		p.logf("%s: clear failed: %v", p.widgetType, err)
		return Fail[Void](writeErr.Error())
	}

	userID = strings.TrimSpace(userID)
	if userID == "" || p.remote == nil {
		return Ok(Void{})
	}
	if err := p.remote.Delete(ctx, userID, p.instanceID); err != nil {
		p.logf("%s: remote clear failed: %v", p.widgetType, err)
		return Warn(Void{}, remoteError("clear", err).Error())
	}
	return Ok(Void{})
}

// loadLocal reads the cached payload, falling back to defaults on missing
// or corrupt values rather than failing the render path.
func (p *Provider[D]) loadLocal() D {
	raw, err := p.local.Get(p.localKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.logf("%s: local read failed, using defaults: %v", p.widgetType, err)
		}
		return p.defaults()
	}
	data, err := p.decode([]byte(raw))
	if err != nil {
		p.logf("%s: corrupt local payload, using defaults: %v", p.widgetType, err)
		return p.defaults()
	}
	return data
}

func (p *Provider[D]) storeLocal(data D) error {
	payload, err := p.encode(data)
	if err != nil {
		return err
	}
	return p.local.Set(p.localKey, string(payload))
}

// equalsDefaults compares encoded forms so the payload type needs no
// comparability of its own.
func (p *Provider[D]) equalsDefaults(data D) bool {
	encoded, err := p.encode(data)
	if err != nil {
		return false
	}
	defaults, err := p.encode(p.defaults())
	if err != nil {
		return false
	}
	return bytes.Equal(encoded, defaults)
}

func (p *Provider[D]) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("widget.type", p.widgetType),
		attribute.String("widget.instance", p.instanceID),
	))
}

func remoteError(op string, cause error) *platformerrors.Error {
	return platformerrors.Wrap(
		platformerrors.CodeSyncRemoteFailure,
		fmt.Sprintf("remote %s failed", op),
		cause,
	)
}
