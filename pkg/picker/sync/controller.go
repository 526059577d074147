// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package sync implements the picker sync controller: it tracks the active
// cloud media provider, plans per-provider syncs, executes them as paged,
// resumable writes into the picker db, and publishes change notifications.
package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	gosync "sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/DataDog/picker-sync/pkg/config"
	"github.com/DataDog/picker-sync/pkg/picker/db"
	"github.com/DataDog/picker-sync/pkg/picker/events"
	"github.com/DataDog/picker-sync/pkg/picker/notify"
	"github.com/DataDog/picker-sync/pkg/picker/prefs"
	"github.com/DataDog/picker-sync/pkg/picker/provider"
	"github.com/DataDog/picker-sync/pkg/util/log"
)

// prefsValueCloudProviderUnset is the persisted sentinel distinguishing "the
// user explicitly cleared the cloud provider" from "never configured".
const prefsValueCloudProviderUnset = "-"

// cloudState is the in-memory tri-state of the cloud provider selection. It
// maps to the persisted authority key: absent / the unset sentinel / a value.
type cloudState int

const (
	// cloudStateNotSet means no provider was ever configured; default
	// selection may pick one.
	cloudStateNotSet cloudState = iota
	// cloudStateUnset means the user explicitly cleared the provider;
	// default selection must not pick one.
	cloudStateUnset
	cloudStateSet
)

func (s cloudState) String() string {
	switch s {
	case cloudStateNotSet:
		return "NOT_SET"
	case cloudStateUnset:
		return "UNSET"
	case cloudStateSet:
		return "SET"
	default:
		return "UNKNOWN"
	}
}

func stateForInfo(info provider.Info) cloudState {
	if info.IsEmpty() {
		return cloudStateNotSet
	}
	return cloudStateSet
}

// IdleMaintenanceSyncLock serializes full-media local syncs against other
// maintenance jobs touching the picker db. Process-wide on purpose: the idle
// maintenance job lives outside this package.
var IdleMaintenanceSyncLock gosync.Mutex

// StorageNotifier mirrors the active cloud authority to the OS storage
// service. Best effort: failures are logged, never raised.
type StorageNotifier interface {
	SetCloudMediaProvider(authority string) error
}

// Deps are the controller's collaborators. Registry, DB and Prefs are
// required; the rest defaults to sane no-ops.
type Deps struct {
	Config   config.Store
	Registry *provider.Registry
	DB       *db.Facade
	Prefs    *prefs.Store
	Hub      *notify.Hub
	Events   *events.Reporter
	Storage  StorageNotifier

	// LocalAuthority defaults to provider.LocalAuthority.
	LocalAuthority string
	// PageSize defaults to the configured sync page size.
	PageSize int
}

// Controller syncs the local and currently enabled cloud provider into the
// picker db. One instance per process.
type Controller struct {
	cfg      config.Store
	registry *provider.Registry
	db       *db.Facade
	prefs    *prefs.Store
	hub      *notify.Hub
	events   *events.Reporter
	storage  StorageNotifier

	localAuthority string
	pageSize       int

	// Lock ordering: when both are needed, cloudSyncLock is acquired
	// before cloudProviderLock. Never the reverse. Methods suffixed
	// *Locked require cloudProviderLock to be held by the caller.
	cloudSyncLock     gosync.Mutex
	cloudProviderLock gosync.Mutex
	// cloudProviderInfo and cloudState are guarded by cloudProviderLock.
	cloudProviderInfo provider.Info
	cloudState        cloudState
}

var (
	instanceMu gosync.Mutex
	instance   *Controller
)

// Initialize builds the process-wide controller instance. Call once at
// startup; later calls replace the instance (tests only).
func Initialize(deps Deps) (*Controller, error) {
	c, err := NewController(deps)
	if err != nil {
		return nil, err
	}
	SetInstance(c)
	return c, nil
}

// SetInstance replaces the process-wide instance. Exposed for tests that
// need to inject a controller into worker code paths.
func SetInstance(c *Controller) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = c
}

// GetInstanceOrFail returns the process-wide controller or an error when
// Initialize has not run.
func GetInstanceOrFail() (*Controller, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		return nil, errors.New("picker sync controller is not initialized")
	}
	return instance, nil
}

// NewController builds a controller without touching the process-wide
// instance, and runs cloud provider default selection.
func NewController(deps Deps) (*Controller, error) {
	if deps.Registry == nil || deps.DB == nil || deps.Prefs == nil {
		return nil, errors.New("registry, db and prefs are required")
	}
	if deps.Config == nil {
		deps.Config = config.C
	}
	if deps.Hub == nil {
		deps.Hub = notify.NewHub()
	}
	if deps.Events == nil {
		deps.Events = events.NewNoopReporter()
	}
	if deps.LocalAuthority == "" {
		deps.LocalAuthority = provider.LocalAuthority
	}
	if deps.PageSize == 0 {
		deps.PageSize = deps.Config.SyncPageSize()
	}

	c := &Controller{
		cfg:            deps.Config,
		registry:       deps.Registry,
		db:             deps.DB,
		prefs:          deps.Prefs,
		hub:            deps.Hub,
		events:         deps.Events,
		storage:        deps.Storage,
		localAuthority: deps.LocalAuthority,
		pageSize:       deps.PageSize,
	}
	c.initCloudProvider()
	return c, nil
}

func (c *Controller) initCloudProvider() {
	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()

	if !c.cfg.IsCloudMediaInPhotoPickerEnabled() {
		log.Debugf("cloud media feature is disabled during controller construction")
		c.persistCloudProviderInfoLocked(provider.EmptyInfo, cloudStateNotSet)
		return
	}

	cachedAuthority, present := c.prefs.GetString(prefs.UserPrefs, prefs.KeyCloudProviderAuthority)
	if present && cachedAuthority == prefsValueCloudProviderUnset {
		log.Debugf("cloud provider state is unset during controller construction")
		c.cloudProviderInfo = provider.EmptyInfo
		c.cloudState = cloudStateUnset
		return
	}

	c.initCloudProviderLocked(cachedAuthority)
}

func (c *Controller) initCloudProviderLocked(cachedAuthority string) {
	defaultInfo := c.defaultCloudProviderInfo(cachedAuthority)

	if defaultInfo.Authority == cachedAuthority {
		// Not changing; set without persisting so the "cloud media now
		// available" notification does not fire.
		c.cloudProviderInfo = defaultInfo
		c.cloudState = stateForInfo(defaultInfo)
	} else {
		c.persistCloudProviderInfoLocked(defaultInfo, stateForInfo(defaultInfo))
	}

	log.Debugf("initialized cloud provider to: %q", defaultInfo.Authority)
}

// defaultCloudProviderInfo picks the cloud provider to use when none was
// explicitly chosen: a sole available provider wins, then the last used one,
// then the configured default package, then none.
func (c *Controller) defaultCloudProviderInfo(lastAuthority string) provider.Info {
	providers := c.GetAvailableCloudProviders()

	if len(providers) == 1 {
		log.Infof("only one cloud provider found, %s is the default", providers[0].Authority)
		return providers[0]
	}
	log.Infof("found %d available cloud media providers", len(providers))

	if lastAuthority != "" {
		for _, p := range providers {
			if p.Authority == lastAuthority {
				return p
			}
		}
	}

	if defaultPkg := c.cfg.DefaultCloudProviderPackage(); defaultPkg != "" {
		log.Infof("default cloud media provider package is %s", defaultPkg)
		for _, p := range providers {
			if p.Matches(defaultPkg) {
				return p
			}
		}
	} else {
		log.Infof("default cloud media provider is not set")
	}

	return provider.EmptyInfo
}

// GetAvailableCloudProviders returns the installed and allow-listed cloud
// providers.
func (c *Controller) GetAvailableCloudProviders() []provider.Info {
	return c.registry.Available(c.localAuthority)
}

// SetCloudProvider enables the provider with the given authority as the
// active cloud provider; the empty string clears it. The new provider is not
// synced here: no cloud items are visible until the next sync. Returns false
// when the feature is disabled or the authority is unknown.
func (c *Controller) SetCloudProvider(authority string) bool {
	return c.setCloudProviderInternal(authority, false)
}

// ForceSetCloudProvider is SetCloudProvider ignoring the allow-list.
func (c *Controller) ForceSetCloudProvider(authority string) bool {
	return c.setCloudProviderInternal(authority, true)
}

func (c *Controller) setCloudProviderInternal(authority string, ignoreAllowlist bool) bool {
	log.Debugf("setCloudProviderInternal() auth=%q ignoreAllowlist=%v", authority, ignoreAllowlist)

	if !c.cfg.IsCloudMediaInPhotoPickerEnabled() {
		log.Warnf("ignoring request to set the cloud provider (%q): feature is disabled", //nolint:errcheck
			authority)
		return false
	}

	c.cloudProviderLock.Lock()
	if c.cloudProviderInfo.Authority == authority {
		c.cloudProviderLock.Unlock()
		log.Warnf("cloud provider already set: %q", authority) //nolint:errcheck
		return true
	}
	c.cloudProviderLock.Unlock()

	newInfo := c.registry.Resolve(authority, c.localAuthority, ignoreAllowlist)
	if authority != "" && newInfo.IsEmpty() {
		log.Warnf("cloud provider not supported: %q", authority) //nolint:errcheck
		return false
	}

	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()

	// Disable cloud queries on the db until the next sync re-enables them
	// for whatever provider is active by then.
	c.db.SetCloudProvider("")

	oldAuthority := c.cloudProviderInfo.Authority
	state := cloudStateSet
	if newInfo.IsEmpty() {
		// An explicit clear, as opposed to never-configured.
		state = cloudStateUnset
	}
	c.persistCloudProviderInfoLocked(newInfo, state)

	c.events.CloudProviderChanged(newInfo.UID, newInfo.PackageName)
	log.Infof("cloud provider changed successfully. old: %q new: %q", oldAuthority, newInfo.Authority)
	return true
}

// persistCloudProviderInfoLocked updates the in-memory state, the persisted
// authority (value / unset sentinel / absent), the OS storage service, the
// cloud sync cursor and the UI refresh observers. Requires cloudProviderLock.
func (c *Controller) persistCloudProviderInfoLocked(info provider.Info, state cloudState) {
	c.cloudProviderInfo = info
	c.cloudState = state
	authority := info.Authority

	// The tri-state serializes to the string form only here.
	var err error
	switch state {
	case cloudStateSet:
		err = c.prefs.PutString(prefs.UserPrefs, prefs.KeyCloudProviderAuthority, authority)
	case cloudStateUnset:
		err = c.prefs.PutString(prefs.UserPrefs, prefs.KeyCloudProviderAuthority,
			prefsValueCloudProviderUnset)
	default:
		err = c.prefs.Remove(prefs.UserPrefs, prefs.KeyCloudProviderAuthority)
	}
	if err != nil {
		log.Errorf("failed to persist cloud provider authority %q: %v", authority, err) //nolint:errcheck
	}

	if c.storage != nil {
		if err := c.storage.SetCloudMediaProvider(authority); err != nil {
			// Only the media provider uid may notify in production;
			// under test this is expected to fail.
			log.Warnf("failed to notify the system of cloud provider update to %q: %v", //nolint:errcheck
				authority, err)
		}
	}

	log.Debugf("updated cloud provider to %q", authority)

	// The cursor of the previous cloud provider is meaningless for the new
	// one. Clearing it also drops any resume tokens (they must not outlive
	// the collection).
	if authority != "" {
		if err := c.cacheMediaCollectionInfoInternal(false, nil); err != nil {
			log.Errorf("failed to reset cloud sync cursor: %v", err) //nolint:errcheck
		}
	}

	c.hub.Notify(notify.RefreshUIURI)
}

// GetCloudProvider returns the authority of the active cloud provider, or ""
// when none is enabled.
func (c *Controller) GetCloudProvider() string {
	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()
	return c.cloudProviderInfo.Authority
}

// GetCurrentCloudProviderInfo returns the Info of the active cloud provider,
// or provider.EmptyInfo.
func (c *Controller) GetCurrentCloudProviderInfo() provider.Info {
	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()
	return c.cloudProviderInfo
}

// GetLocalProvider returns the authority of the local provider.
func (c *Controller) GetLocalProvider() string {
	return c.localAuthority
}

// IsProviderEnabled reports whether the authority is the local provider or
// the active cloud provider.
func (c *Controller) IsProviderEnabled(authority string) bool {
	if authority == c.localAuthority {
		return true
	}
	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()
	return !c.cloudProviderInfo.IsEmpty() && c.cloudProviderInfo.Authority == authority
}

// IsProviderEnabledForUID is IsProviderEnabled with a uid check on top.
func (c *Controller) IsProviderEnabledForUID(authority string, uid int) bool {
	if authority == c.localAuthority {
		return uid == c.localUID()
	}
	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()
	return !c.cloudProviderInfo.IsEmpty() &&
		c.cloudProviderInfo.UID == uid &&
		c.cloudProviderInfo.Authority == authority
}

// IsProviderSupported reports whether the authority/uid pair belongs to the
// local provider or to any installed cloud provider, allow-list ignored.
func (c *Controller) IsProviderSupported(authority string, uid int) bool {
	if authority == c.localAuthority {
		return uid == c.localUID()
	}
	for _, info := range c.registry.AllAvailable(c.localAuthority) {
		if info.UID == uid && info.Authority == authority {
			return true
		}
	}
	return false
}

func (c *Controller) localUID() int {
	if info := c.registry.Info(c.localAuthority); !info.IsEmpty() {
		return info.UID
	}
	return os.Getuid()
}

// NotifyPackageRemoval clears the active cloud provider when its package is
// removed, leaves the persisted state NotSet (not Unset) and re-runs default
// selection.
func (c *Controller) NotifyPackageRemoval(packageName string) {
	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()

	if !c.cloudProviderInfo.Matches(packageName) {
		return
	}
	log.Infof("package %s is the current cloud provider and got removed", packageName)

	// Clear the provider as NotSet, not Unset: removal is not a user
	// choice, so default selection may pick a provider again.
	c.db.SetCloudProvider("")
	c.persistCloudProviderInfoLocked(provider.EmptyInfo, cloudStateNotSet)

	// Removal is an audited provider change like any other.
	c.events.CloudProviderChanged(provider.EmptyInfo.UID, provider.EmptyInfo.PackageName)

	c.initCloudProviderLocked("")
}

// Dump writes a human-readable state snapshot.
func (c *Controller) Dump(w io.Writer) {
	c.cloudProviderLock.Lock()
	info, state := c.cloudProviderInfo, c.cloudState
	c.cloudProviderLock.Unlock()

	fmt.Fprintln(w, "Picker sync controller state:")
	fmt.Fprintf(w, "  localProvider=%s\n", c.GetLocalProvider())
	fmt.Fprintf(w, "  cloudProviderState=%s\n", state)
	fmt.Fprintf(w, "  cloudProviderInfo=%+v\n", info)
	fmt.Fprintf(w, "  allAvailableCloudProviders=%+v\n", c.registry.AllAvailable(c.localAuthority))

	rawAuthority, _ := c.prefs.GetString(prefs.UserPrefs, prefs.KeyCloudProviderAuthority)
	fmt.Fprintf(w, "  cachedAuthority=%q\n", rawAuthority)
	fmt.Fprintf(w, "  cachedLocalMediaCollectionInfo=%+v\n", c.getCachedMediaCollectionInfo(true))
	fmt.Fprintf(w, "  cachedCloudMediaCollectionInfo=%+v\n", c.getCachedMediaCollectionInfo(false))
}

// SyncAllMedia syncs the local and then the currently enabled cloud provider.
// Both are attempted; errors are combined.
func (c *Controller) SyncAllMedia(ctx context.Context) error {
	log.Debugf("SyncAllMedia")

	var result *multierror.Error
	result = multierror.Append(result, c.SyncAllMediaFromLocalProvider(ctx))
	result = multierror.Append(result, c.SyncAllMediaFromCloudProvider(ctx))
	return result.ErrorOrNil()
}

// SyncAllMediaFromLocalProvider syncs the local media under the process-wide
// idle maintenance lock (picker sync and idle maintenance touch the same db
// and can deadlock when interleaved).
func (c *Controller) SyncAllMediaFromLocalProvider(ctx context.Context) error {
	IdleMaintenanceSyncLock.Lock()
	defer IdleMaintenanceSyncLock.Unlock()

	return c.syncAllMediaFromProvider(ctx, c.localAuthority, true,
		true /* retryOnFailure */, false /* enforcePagedSync */)
}

// SyncAllMediaFromCloudProvider syncs the cloud media. Cloud queries on the
// db are disabled for the duration and re-enabled at the end only if the
// active cloud provider still equals the one this sync ran against.
func (c *Controller) SyncAllMediaFromCloudProvider(ctx context.Context) error {
	c.cloudSyncLock.Lock()
	defer c.cloudSyncLock.Unlock()

	cloudProvider := c.GetCloudProvider()

	// While the sync is in progress all cloud items are invisible to
	// queries; local items keep being served.
	c.db.SetCloudProvider("")

	syncErr := c.syncAllMediaFromProvider(ctx, cloudProvider, false,
		true /* retryOnFailure */, true /* enforcePagedSync */)
	if syncErr != nil {
		log.Errorf("failed to fully complete sync with cloud provider %q: %v. "+ //nolint:errcheck
			"The provider may have changed during the sync, or only a partial sync completed.",
			cloudProvider, syncErr)
	}

	// The album media tables are rebuilt on demand; reset them on every
	// all-media sync.
	// TODO(picker): decide whether resetting the local album tables here
	// is actually needed or only the cloud ones.
	if err := c.resetAlbumMediaLocked(); err != nil {
		log.Errorf("failed to reset album media: %v", err) //nolint:errcheck
	}

	c.cloudProviderLock.Lock()
	defer c.cloudProviderLock.Unlock()
	if c.cloudProviderInfo.Authority == cloudProvider {
		c.db.SetCloudProvider(cloudProvider)
	} else {
		log.Errorf("not re-enabling cloud queries for %q: cloud provider changed to %q", //nolint:errcheck
			cloudProvider, c.cloudProviderInfo.Authority)
	}
	return syncErr
}

// SyncAlbumMedia syncs one album from the local or the active cloud
// provider. Album syncs are always a reset followed by a full paged add;
// there is no retry because incremental album sync is not supported and a
// second identical attempt cannot do better.
func (c *Controller) SyncAlbumMedia(ctx context.Context, albumID string, isLocal bool) error {
	if isLocal {
		return c.syncAlbumMediaFromProvider(ctx, c.localAuthority, true, albumID, false)
	}

	c.cloudSyncLock.Lock()
	defer c.cloudSyncLock.Unlock()
	return c.syncAlbumMediaFromProvider(ctx, c.GetCloudProvider(), false, albumID, true)
}

// ResetAllMedia resets the media synced from both providers: db rows and
// cached sync cursors.
func (c *Controller) ResetAllMedia() error {
	var result *multierror.Error
	result = multierror.Append(result, c.resetAllMediaFor(c.localAuthority, true))

	c.cloudSyncLock.Lock()
	result = multierror.Append(result, c.resetAllMediaFor(c.GetCloudProvider(), false))
	c.cloudSyncLock.Unlock()

	return result.ErrorOrNil()
}

func (c *Controller) resetAllMediaFor(authority string, isLocal bool) error {
	if err := c.executeSyncReset(authority, isLocal); err != nil {
		return err
	}
	return c.resetCachedMediaCollectionInfo(authority, isLocal)
}

// resetAlbumMediaLocked resets the album media of both providers. Requires
// cloudSyncLock.
func (c *Controller) resetAlbumMediaLocked() error {
	var result *multierror.Error
	result = multierror.Append(result, c.executeSyncAlbumReset(c.localAuthority, true, ""))
	result = multierror.Append(result, c.executeSyncAlbumReset(c.GetCloudProvider(), false, ""))
	return result.ErrorOrNil()
}

// syncAllMediaFromProvider plans and executes a sync for one provider,
// applying the retry policy: a fatal state error resets the provider's media
// and retries once; any other runtime error retries once without reset so
// resume tokens survive; an obsolete request never retries.
func (c *Controller) syncAllMediaFromProvider(ctx context.Context, authority string,
	isLocal, retryOnFailure, enforcePagedSync bool) error {
	log.Debugf("syncAllMediaFromProvider() %s, auth=%q, retry=%v",
		providerKind(isLocal), authority, retryOnFailure)

	err := c.syncAllMediaFromProviderOnce(ctx, authority, isLocal, enforcePagedSync)
	switch {
	case err == nil:
		return nil

	case errors.Is(err, ErrRequestObsolete):
		c.events.SyncFailure(isLocal)
		return log.Errorf("failed to sync all media because the authority changed: %v", err)

	case errors.Is(err, db.ErrInvalidOperation):
		// The run was aborted before any state changed; a retry would
		// hit the same condition.
		c.events.SyncFailure(isLocal)
		return err

	case isStateError(err):
		// Reset and, if allowed, start over with a full sync.
		if resetErr := c.resetAllMediaFor(authority, isLocal); resetErr != nil {
			log.Errorf("failed to reset media after state error: %v", resetErr) //nolint:errcheck
		}
		log.Errorf("failed to sync all media. reset media and retry: %v: %v", retryOnFailure, err) //nolint:errcheck
		if retryOnFailure {
			return c.syncAllMediaFromProvider(ctx, authority, isLocal, false, enforcePagedSync)
		}
		c.events.SyncFailure(isLocal)
		return err

	default:
		// Possibly intermittent; retry once from the persisted resume
		// point.
		log.Errorf("failed to sync all media. retry: %v: %v", retryOnFailure, err) //nolint:errcheck
		if retryOnFailure {
			return c.syncAllMediaFromProvider(ctx, authority, isLocal, false, enforcePagedSync)
		}
		c.events.SyncFailure(isLocal)
		return err
	}
}

func (c *Controller) syncAllMediaFromProviderOnce(ctx context.Context, authority string,
	isLocal, enforcePagedSync bool) error {
	params, err := c.getSyncRequestParams(ctx, authority, isLocal)
	if err != nil {
		return err
	}

	switch params.kind {
	case syncReset:
		// Only happens when the cloud authority was cleared and
		// leftovers need cleaning up.
		return c.resetAllMediaFor(authority, isLocal)

	case syncFull:
		if err := c.resetAllMediaFor(authority, isLocal); err != nil {
			return err
		}
		args := provider.QueryArgs{}
		if enforcePagedSync {
			args.PageSize = params.pageSize
		}
		if err := c.executeSyncAdd(ctx, authority, isLocal,
			params.latest.MediaCollectionID, false, enforcePagedSync, args); err != nil {
			return err
		}
		// Commit the sync position.
		return c.cacheMediaCollectionInfo(authority, isLocal, &params.latest)

	case syncIncremental:
		args := provider.QueryArgs{SyncGeneration: params.syncGeneration, IsIncremental: true}
		if enforcePagedSync {
			args.PageSize = params.pageSize
		}
		if err := c.executeSyncAdd(ctx, authority, isLocal,
			params.latest.MediaCollectionID, true, enforcePagedSync, args); err != nil {
			return err
		}
		if err := c.executeSyncRemove(ctx, authority, isLocal,
			params.latest.MediaCollectionID, args); err != nil {
			return err
		}
		return c.cacheMediaCollectionInfo(authority, isLocal, &params.latest)

	case syncNone:
		return nil

	default:
		return errors.Errorf("unexpected sync type: %d", params.kind)
	}
}

func (c *Controller) syncAlbumMediaFromProvider(ctx context.Context, authority string,
	isLocal bool, albumID string, enforcePagedSync bool) error {
	args := provider.QueryArgs{AlbumID: albumID}
	if enforcePagedSync {
		args.PageSize = c.pageSize
	}

	if err := c.executeSyncAlbumReset(authority, isLocal, albumID); err != nil {
		return log.Errorf("failed to reset album media: %v", err)
	}
	if authority == "" {
		return nil
	}
	if err := c.executeSyncAddAlbum(ctx, authority, isLocal, albumID, args); err != nil {
		return log.Errorf("failed to sync album media: %v", err)
	}
	return nil
}

func (c *Controller) executeSyncReset(authority string, isLocal bool) error {
	log.Infof("executing SyncReset. isLocal: %v. authority: %q", isLocal, authority)

	op, err := c.db.BeginResetMediaOperation(authority)
	if err != nil {
		return err
	}
	defer op.Close() //nolint:errcheck

	count, err := op.Execute(nil)
	if err != nil {
		return err
	}
	op.SetSuccess()
	if err := op.Close(); err != nil {
		return err
	}

	log.Infof("SyncReset. isLocal: %v. authority: %q. result count: %d", isLocal, authority, count)
	return nil
}

func (c *Controller) executeSyncAlbumReset(authority string, isLocal bool, albumID string) error {
	log.Infof("executing SyncAlbumReset. isLocal: %v. authority: %q. albumId: %q",
		isLocal, authority, albumID)

	op, err := c.db.BeginResetAlbumMediaOperation(authority, albumID)
	if err != nil {
		return err
	}
	defer op.Close() //nolint:errcheck

	count, err := op.Execute(nil)
	if err != nil {
		return err
	}
	op.SetSuccess()
	if err := op.Close(); err != nil {
		return err
	}

	log.Infof("SyncAlbumReset done. authority: %q. albumId: %q. result count: %d",
		authority, albumID, count)
	return nil
}

func (c *Controller) executeSyncAdd(ctx context.Context, authority string, isLocal bool,
	expectedCollectionID string, isIncremental, enforcePagedSync bool,
	args provider.QueryArgs) error {
	var required []string
	if isIncremental {
		required = append(required, provider.ArgSyncGeneration)
	}
	if enforcePagedSync {
		required = append(required, provider.ArgPageSize)
	}

	log.Infof("executing SyncAdd. isLocal: %v. authority: %q", isLocal, authority)

	return c.executePagedSync(ctx, pagedRequest{
		op:                   notify.OpAddMedia,
		authority:            authority,
		isLocal:              isLocal,
		expectedCollectionID: expectedCollectionID,
		requiredArgs:         required,
		args:                 args,
		resumeKey:            prefsKey(isLocal, prefs.KeyResumeMediaAdd),
	})
}

func (c *Controller) executeSyncAddAlbum(ctx context.Context, authority string, isLocal bool,
	albumID string, args provider.QueryArgs) error {
	log.Infof("executing SyncAddAlbum. isLocal: %v. authority: %q. albumId: %q",
		isLocal, authority, albumID)

	// Album syncs are always full, so there is no collection id to pin
	// across pages.
	return c.executePagedSync(ctx, pagedRequest{
		op:           notify.OpAddAlbum,
		authority:    authority,
		isLocal:      isLocal,
		albumID:      albumID,
		requiredArgs: []string{provider.ArgAlbumID},
		args:         args,
		resumeKey:    prefsKey(isLocal, prefs.KeyResumeAlbumAdd),
	})
}

func (c *Controller) executeSyncRemove(ctx context.Context, authority string, isLocal bool,
	expectedCollectionID string, args provider.QueryArgs) error {
	log.Infof("executing SyncRemove. isLocal: %v. authority: %q", isLocal, authority)

	return c.executePagedSync(ctx, pagedRequest{
		op:                   notify.OpRemoveMedia,
		authority:            authority,
		isLocal:              isLocal,
		deleted:              true,
		expectedCollectionID: expectedCollectionID,
		requiredArgs:         []string{provider.ArgSyncGeneration},
		args:                 args,
		resumeKey:            prefsKey(isLocal, prefs.KeyResumeMediaRemove),
	})
}
