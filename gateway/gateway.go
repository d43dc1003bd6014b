// Package gateway is the only component that touches the relational store
// and the photo bucket. Its public boundary never raises: every failure is
// encoded as nil, false or an empty collection, with the cause logged. A
// network hiccup must never crash a user-facing screen.
package gateway

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"trackanalyzer/cache"
	"trackanalyzer/core/auth"
	"trackanalyzer/core/photo"
	"trackanalyzer/core/reconcile"
	"trackanalyzer/logger"
	"trackanalyzer/model"
	"trackanalyzer/repository"
)

// PhotoObjectStore is the blob-store surface the gateway depends on.
// Implemented by storage.PhotoStore in production.
type PhotoObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, path string) error
	RemoveReadingObjects(ctx context.Context, readingID string) error
}

// ObjectKeyFunc builds a bucket key for a lane photo. Injected so tests can
// pin the timestamp suffix.
type ObjectKeyFunc func(readingID, lane, filename string, epochMs int64) string

// ContentTypeFunc resolves an upload content type from a filename.
type ContentTypeFunc func(filename string) string

// Gateway exposes track CRUD, reading CRUD, photo upload and signed-URL
// issuance over the remote stores. Identity is threaded explicitly into
// every call; there is no ambient auth state.
type Gateway struct {
	tracks   repository.TrackRepository
	readings repository.ReadingRepository
	photos   PhotoObjectStore
	urls     *cache.SignedURLCache

	objectKey   ObjectKeyFunc
	contentType ContentTypeFunc
	nowMillis   func() int64
}

// New wires a gateway over its collaborators. urls may be nil (no caching).
func New(
	tracks repository.TrackRepository,
	readings repository.ReadingRepository,
	photos PhotoObjectStore,
	urls *cache.SignedURLCache,
	objectKey ObjectKeyFunc,
	contentType ContentTypeFunc,
) *Gateway {
	return &Gateway{
		tracks:      tracks,
		readings:    readings,
		photos:      photos,
		urls:        urls,
		objectKey:   objectKey,
		contentType: contentType,
		nowMillis:   func() int64 { return time.Now().UnixMilli() },
	}
}

// ListTracks returns the team's tracks, newest first. Empty on any failure
// or when the caller is unauthenticated, never an error.
func (g *Gateway) ListTracks(ctx context.Context, ident auth.Identity) []model.Track {
	if !ident.IsAuthenticated() {
		return []model.Track{}
	}

	tracks, err := g.tracks.List(ctx)
	if err != nil {
		logger.Error("ListTracks failed", logger.ErrorField(err))
		return []model.Track{}
	}
	return tracks
}

// SortTracksByName re-sorts a track list alphabetically for screens that
// want it; the store order stays creation-time descending.
func SortTracksByName(tracks []model.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Name < tracks[j].Name
	})
}

// CreateTrack persists a new track attributed to the caller. Returns nil
// when the identity cannot be resolved or the write fails; nil always means
// nothing was created.
func (g *Gateway) CreateTrack(ctx context.Context, ident auth.Identity, name, location string) *model.Track {
	if !ident.IsAuthenticated() {
		logger.Warn("CreateTrack rejected: unresolved identity")
		return nil
	}

	track := &model.Track{
		ID:        uuid.NewString(),
		UserID:    ident.UserID,
		Name:      name,
		Location:  location,
		CreatedAt: time.Now(),
	}

	if err := g.tracks.Insert(ctx, track); err != nil {
		logger.Error("CreateTrack failed", logger.String("name", name), logger.ErrorField(err))
		return nil
	}
	return track
}

// DeleteTrack removes a track, its readings and their photo objects. Rows
// go first, readings strictly before the track row, then blob cleanup
// runs best-effort.
func (g *Gateway) DeleteTrack(ctx context.Context, ident auth.Identity, trackID string) bool {
	if !ident.IsAuthenticated() {
		return false
	}

	// Collect photo paths before the rows disappear.
	paths, err := g.tracks.ReadingPhotoPaths(ctx, trackID)
	if err != nil {
		logger.Warn("DeleteTrack: photo path collection failed, blob cleanup skipped",
			logger.String("trackId", trackID), logger.ErrorField(err))
		paths = nil
	}

	deleted, err := g.tracks.DeleteWithReadings(ctx, trackID)
	if err != nil {
		logger.Error("DeleteTrack failed", logger.String("trackId", trackID), logger.ErrorField(err))
		return false
	}
	if !deleted {
		return false
	}

	for _, path := range paths {
		if g.photos == nil {
			break
		}
		if err := g.photos.Remove(ctx, path); err != nil {
			logger.Warn("DeleteTrack: photo object removal failed",
				logger.String("path", path), logger.ErrorField(err))
		}
		g.urls.Invalidate(ctx, path)
	}
	return true
}

// ListReadings returns a track's readings, reconciled, newest first. The
// optional year filter is applied remote-side.
func (g *Gateway) ListReadings(ctx context.Context, ident auth.Identity, trackID string, year *int) []model.Reading {
	if !ident.IsAuthenticated() {
		return []model.Reading{}
	}

	raws, err := g.readings.ListByTrack(ctx, trackID, year)
	if err != nil {
		logger.Error("ListReadings failed", logger.String("trackId", trackID), logger.ErrorField(err))
		return []model.Reading{}
	}

	readings := make([]model.Reading, 0, len(raws))
	for _, raw := range raws {
		readings = append(readings, reconcile.Reconcile(raw))
	}
	return readings
}

// ListReadingsByDay groups a track's readings into per-day buckets.
func (g *Gateway) ListReadingsByDay(ctx context.Context, ident auth.Identity, trackID string, year *int) []model.DayReadings {
	return reconcile.GroupByDay(g.ListReadings(ctx, ident, trackID, year))
}

// GetReading fetches and reconciles one reading. Nil means not found or
// failed; callers track "loading" separately, never by exception.
func (g *Gateway) GetReading(ctx context.Context, ident auth.Identity, id string) *model.Reading {
	if !ident.IsAuthenticated() {
		return nil
	}

	raw, err := g.readings.GetByID(ctx, id)
	if err != nil {
		logger.Error("GetReading failed", logger.String("readingId", id), logger.ErrorField(err))
		return nil
	}
	if raw == nil {
		return nil
	}

	reading := reconcile.Reconcile(*raw)
	return &reading
}

// CreateReading persists a reading, weather snapshot included, then
// re-fetches and reconciles the stored row rather than trusting the insert
// echo, so the result matches exactly what GetReading would later produce.
func (g *Gateway) CreateReading(ctx context.Context, ident auth.Identity, reading model.Reading) *model.Reading {
	if !ident.IsAuthenticated() {
		logger.Warn("CreateReading rejected: unresolved identity")
		return nil
	}

	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	reading.UserID = ident.UserID

	// Run the input through reconciliation so track_date, year and the
	// legacy display strings are derived before the row is written.
	normalized := reconcile.Reconcile(reconcile.ToRaw(reading))

	if err := g.readings.Insert(ctx, &normalized); err != nil {
		logger.Error("CreateReading failed", logger.String("trackId", reading.TrackID), logger.ErrorField(err))
		return nil
	}

	return g.GetReading(ctx, ident, normalized.ID)
}

// UpdateReading applies a sparse patch: fields absent from the patch are
// left unchanged, explicit clears go through as NULL. Returns the
// re-fetched, reconciled row, or nil on failure.
func (g *Gateway) UpdateReading(ctx context.Context, ident auth.Identity, id string, patch *model.ReadingPatch) *model.Reading {
	if !ident.IsAuthenticated() {
		return nil
	}

	ok, err := g.readings.Update(ctx, id, patch)
	if err != nil {
		logger.Error("UpdateReading failed", logger.String("readingId", id), logger.ErrorField(err))
		return nil
	}
	if !ok {
		return nil
	}

	return g.GetReading(ctx, ident, id)
}

// DeleteReading removes a reading row, then its photo objects best-effort.
func (g *Gateway) DeleteReading(ctx context.Context, ident auth.Identity, id string) bool {
	if !ident.IsAuthenticated() {
		return false
	}

	paths, err := g.readings.PhotoPaths(ctx, id)
	if err != nil {
		logger.Warn("DeleteReading: photo path collection failed",
			logger.String("readingId", id), logger.ErrorField(err))
	}

	deleted, err := g.readings.Delete(ctx, id)
	if err != nil {
		logger.Error("DeleteReading failed", logger.String("readingId", id), logger.ErrorField(err))
		return false
	}
	if !deleted {
		return false
	}

	if g.photos != nil {
		if err := g.photos.RemoveReadingObjects(ctx, id); err != nil {
			logger.Warn("DeleteReading: photo cleanup failed",
				logger.String("readingId", id), logger.ErrorField(err))
		}
	}
	for _, path := range paths {
		g.urls.Invalidate(ctx, path)
	}
	return true
}

// UploadPhoto stores a lane photo and records its path on the reading. The
// stored path becomes authoritative; the lane's device-local imageUri is
// cleared in the same statement. Returns "" when nothing was stored.
func (g *Gateway) UploadPhoto(ctx context.Context, ident auth.Identity, readingID, lane, filename string, reader io.Reader, size int64) string {
	if !ident.IsAuthenticated() || g.photos == nil {
		return ""
	}

	key := g.objectKey(readingID, lane, filename, g.nowMillis())
	contentType := g.contentType(filename)

	path, err := g.photos.Upload(ctx, key, reader, size, contentType)
	if err != nil {
		logger.Error("UploadPhoto failed",
			logger.String("readingId", readingID),
			logger.String("lane", lane),
			logger.ErrorField(err))
		return ""
	}

	if err := g.readings.SetPhotoPath(ctx, readingID, lane, path); err != nil {
		logger.Error("UploadPhoto: path store failed, object orphaned",
			logger.String("key", path), logger.ErrorField(err))
		return ""
	}
	return path
}

// SignedURL issues a time-limited URL for a stored photo path, consulting
// the cache first. Returns "" on any failure; a missing photo must not
// block the rest of the screen.
func (g *Gateway) SignedURL(ctx context.Context, path string, expiry time.Duration) string {
	url, err := g.signPath(ctx, path, expiry)
	if err != nil {
		logger.Warn("SignedURL failed", logger.String("path", path), logger.ErrorField(err))
		return ""
	}
	return url
}

// PhotoURLs resolves both lanes of a reading to displayable URLs, applying
// the resolver's compatibility matrix. Either may come back "" (placeholder).
func (g *Gateway) PhotoURLs(ctx context.Context, reading *model.Reading, expiry time.Duration) (left, right string) {
	signer := photoSigner{g: g}
	left = photo.URL(ctx, signer, reading.LeftPhotoPath, reading.LeftLane.ImageURI, expiry)
	right = photo.URL(ctx, signer, reading.RightPhotoPath, reading.RightLane.ImageURI, expiry)
	return left, right
}

func (g *Gateway) signPath(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if cached := g.urls.Get(ctx, path); cached != "" {
		return cached, nil
	}

	url, err := g.photos.SignedURL(ctx, path, expiry)
	if err != nil {
		return "", err
	}

	g.urls.Put(ctx, path, url, expiry)
	return url, nil
}

// photoSigner adapts the gateway's signing primitive to the resolver's
// Signer interface.
type photoSigner struct {
	g *Gateway
}

func (s photoSigner) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return s.g.signPath(ctx, path, expiry)
}
