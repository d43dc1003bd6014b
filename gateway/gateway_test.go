package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackanalyzer/core/auth"
	"trackanalyzer/core/reconcile"
	"trackanalyzer/model"
	"trackanalyzer/storage"
)

var crew = auth.Identity{UserID: 7, Email: "crew@team.test", State: auth.Authenticated}

// fakeTrackRepo is an in-memory TrackRepository that records the order of
// its calls.
type fakeTrackRepo struct {
	tracks map[string]model.Track
	photos []string
	calls  []string
	fail   bool
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{tracks: make(map[string]model.Track)}
}

func (r *fakeTrackRepo) Insert(ctx context.Context, track *model.Track) error {
	r.calls = append(r.calls, "Insert")
	if r.fail {
		return errors.New("connection reset")
	}
	r.tracks[track.ID] = *track
	return nil
}

func (r *fakeTrackRepo) GetByID(ctx context.Context, id string) (*model.Track, error) {
	r.calls = append(r.calls, "GetByID")
	if track, ok := r.tracks[id]; ok {
		return &track, nil
	}
	return nil, nil
}

func (r *fakeTrackRepo) List(ctx context.Context) ([]model.Track, error) {
	r.calls = append(r.calls, "List")
	if r.fail {
		return nil, errors.New("connection reset")
	}
	out := make([]model.Track, 0, len(r.tracks))
	for _, track := range r.tracks {
		out = append(out, track)
	}
	return out, nil
}

func (r *fakeTrackRepo) DeleteWithReadings(ctx context.Context, trackID string) (bool, error) {
	r.calls = append(r.calls, "DeleteWithReadings")
	if r.fail {
		return false, errors.New("connection reset")
	}
	if _, ok := r.tracks[trackID]; !ok {
		return false, nil
	}
	delete(r.tracks, trackID)
	return true, nil
}

func (r *fakeTrackRepo) ReadingPhotoPaths(ctx context.Context, trackID string) ([]string, error) {
	r.calls = append(r.calls, "ReadingPhotoPaths")
	return r.photos, nil
}

// fakeReadingRepo stores canonical readings and hands back raw rows the way
// the MySQL repository would.
type fakeReadingRepo struct {
	readings map[string]model.Reading
	calls    []string
	fail     bool
}

func newFakeReadingRepo() *fakeReadingRepo {
	return &fakeReadingRepo{readings: make(map[string]model.Reading)}
}

func (r *fakeReadingRepo) Insert(ctx context.Context, reading *model.Reading) error {
	r.calls = append(r.calls, "Insert")
	if r.fail {
		return errors.New("connection reset")
	}
	r.readings[reading.ID] = *reading
	return nil
}

func (r *fakeReadingRepo) GetByID(ctx context.Context, id string) (*model.RawReading, error) {
	r.calls = append(r.calls, "GetByID")
	reading, ok := r.readings[id]
	if !ok {
		return nil, nil
	}
	raw := reconcile.ToRaw(reading)
	return &raw, nil
}

func (r *fakeReadingRepo) ListByTrack(ctx context.Context, trackID string, year *int) ([]model.RawReading, error) {
	r.calls = append(r.calls, "ListByTrack")
	var raws []model.RawReading
	for _, reading := range r.readings {
		if reading.TrackID != trackID {
			continue
		}
		if year != nil && (reading.Year == nil || *reading.Year != *year) {
			continue
		}
		raws = append(raws, reconcile.ToRaw(reading))
	}
	return raws, nil
}

func (r *fakeReadingRepo) Update(ctx context.Context, id string, patch *model.ReadingPatch) (bool, error) {
	r.calls = append(r.calls, "Update")
	reading, ok := r.readings[id]
	if !ok {
		return false, nil
	}
	if patch.Session != nil {
		reading.Session = patch.Session.String
	}
	if patch.Pair != nil {
		reading.Pair = patch.Pair.String
	}
	if patch.LeftLane != nil {
		reading.LeftLane = *patch.LeftLane
	}
	r.readings[id] = reading
	return true, nil
}

func (r *fakeReadingRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.calls = append(r.calls, "Delete")
	if _, ok := r.readings[id]; !ok {
		return false, nil
	}
	delete(r.readings, id)
	return true, nil
}

func (r *fakeReadingRepo) SetPhotoPath(ctx context.Context, id, lane, path string) error {
	r.calls = append(r.calls, "SetPhotoPath:"+lane+":"+path)
	reading, ok := r.readings[id]
	if !ok {
		return errors.New("reading not found")
	}
	switch lane {
	case "left":
		reading.LeftPhotoPath = path
		reading.LeftLane.ImageURI = ""
	case "right":
		reading.RightPhotoPath = path
		reading.RightLane.ImageURI = ""
	}
	r.readings[id] = reading
	return nil
}

func (r *fakeReadingRepo) PhotoPaths(ctx context.Context, id string) ([]string, error) {
	r.calls = append(r.calls, "PhotoPaths")
	reading, ok := r.readings[id]
	if !ok {
		return nil, nil
	}
	var paths []string
	if reading.LeftPhotoPath != "" {
		paths = append(paths, reading.LeftPhotoPath)
	}
	if reading.RightPhotoPath != "" {
		paths = append(paths, reading.RightPhotoPath)
	}
	return paths, nil
}

// fakePhotoStore records blob operations and signs deterministically.
type fakePhotoStore struct {
	uploads  []string
	removed  []string
	signed   int
	signFail bool
}

func (s *fakePhotoStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	s.uploads = append(s.uploads, key)
	return key, nil
}

func (s *fakePhotoStore) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	s.signed++
	if s.signFail {
		return "", errors.New("presign failed")
	}
	return "https://signed.test/" + path, nil
}

func (s *fakePhotoStore) Remove(ctx context.Context, path string) error {
	s.removed = append(s.removed, "Remove:"+path)
	return nil
}

func (s *fakePhotoStore) RemoveReadingObjects(ctx context.Context, readingID string) error {
	s.removed = append(s.removed, "RemoveReadingObjects:"+readingID)
	return nil
}

func newTestGateway() (*Gateway, *fakeTrackRepo, *fakeReadingRepo, *fakePhotoStore) {
	tracks := newFakeTrackRepo()
	readings := newFakeReadingRepo()
	photos := &fakePhotoStore{}
	g := New(tracks, readings, photos, nil, storage.ObjectKey, storage.ContentTypeFor)
	g.nowMillis = func() int64 { return 1735689600000 }
	return g, tracks, readings, photos
}

func TestListTracks_Anonymous(t *testing.T) {
	g, tracks, _, _ := newTestGateway()
	tracks.tracks["t1"] = model.Track{ID: "t1", Name: "Lane 7"}

	got := g.ListTracks(context.Background(), auth.Anonymous())
	assert.Empty(t, got)
	assert.Empty(t, tracks.calls)
}

func TestListTracks_StoreDown(t *testing.T) {
	g, tracks, _, _ := newTestGateway()
	tracks.fail = true

	got := g.ListTracks(context.Background(), crew)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCreateTrack(t *testing.T) {
	g, tracks, _, _ := newTestGateway()

	track := g.CreateTrack(context.Background(), crew, "Lane 7", "Park")
	require.NotNil(t, track)
	assert.NotEmpty(t, track.ID)
	assert.Equal(t, int64(7), track.UserID)
	assert.Contains(t, tracks.tracks, track.ID)
}

func TestCreateTrack_AnonymousRejected(t *testing.T) {
	g, tracks, _, _ := newTestGateway()

	track := g.CreateTrack(context.Background(), auth.Anonymous(), "Lane 7", "Park")
	assert.Nil(t, track)
	assert.Empty(t, tracks.calls)
}

func TestDeleteTrack_RowsBeforeBlobs(t *testing.T) {
	g, tracks, _, photos := newTestGateway()
	tracks.tracks["t1"] = model.Track{ID: "t1"}
	tracks.photos = []string{"readings/r1/left-1.jpg", "readings/r1/right-2.jpg"}

	ok := g.DeleteTrack(context.Background(), crew, "t1")
	require.True(t, ok)

	// Photo paths are collected first, rows deleted second, blobs last.
	assert.Equal(t, []string{"ReadingPhotoPaths", "DeleteWithReadings"}, tracks.calls)
	assert.Equal(t, []string{
		"Remove:readings/r1/left-1.jpg",
		"Remove:readings/r1/right-2.jpg",
	}, photos.removed)
}

func TestDeleteTrack_NotFound(t *testing.T) {
	g, _, _, photos := newTestGateway()

	ok := g.DeleteTrack(context.Background(), crew, "ghost")
	assert.False(t, ok)
	assert.Empty(t, photos.removed)
}

func TestCreateReading_RoundTrip(t *testing.T) {
	g, _, readings, _ := newTestGateway()

	created := g.CreateReading(context.Background(), crew, model.Reading{
		TrackID:   "t1",
		Timestamp: 1735689600000,
		TimeZone:  "America/Chicago",
		Session:   "Q1",
	})
	require.NotNil(t, created)

	// Midnight UTC on New Year's is still New Year's Eve in Chicago.
	assert.Equal(t, "2024-12-31", created.TrackDate)
	require.NotNil(t, created.Year)
	assert.Equal(t, 2024, *created.Year)
	assert.Equal(t, int64(7), created.UserID)
	assert.False(t, created.HasWeather())

	// The returned entity is the re-fetched row, not the input echo.
	assert.Equal(t, []string{"Insert", "GetByID"}, readings.calls)

	fetched := g.GetReading(context.Background(), crew, created.ID)
	require.NotNil(t, fetched)
	assert.Equal(t, *created, *fetched)
}

func TestCreateReading_AnonymousRejected(t *testing.T) {
	g, _, readings, _ := newTestGateway()

	created := g.CreateReading(context.Background(), signedOut(crew), model.Reading{TrackID: "t1"})
	assert.Nil(t, created)
	assert.Empty(t, readings.calls)
}

func signedOut(id auth.Identity) auth.Identity {
	id.State = auth.SignedOut
	return id
}

func TestCreateReading_StoreDown(t *testing.T) {
	g, _, readings, _ := newTestGateway()
	readings.fail = true

	created := g.CreateReading(context.Background(), crew, model.Reading{TrackID: "t1"})
	assert.Nil(t, created)
}

func TestGetReading_NotFound(t *testing.T) {
	g, _, _, _ := newTestGateway()
	assert.Nil(t, g.GetReading(context.Background(), crew, "ghost"))
}

func TestListReadings_YearFilter(t *testing.T) {
	g, _, readings, _ := newTestGateway()
	y24, y25 := 2024, 2025
	readings.readings["r1"] = model.Reading{ID: "r1", TrackID: "t1", TrackDate: "2024-06-01", Year: &y24}
	readings.readings["r2"] = model.Reading{ID: "r2", TrackID: "t1", TrackDate: "2025-06-01", Year: &y25}

	got := g.ListReadings(context.Background(), crew, "t1", &y24)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	all := g.ListReadings(context.Background(), crew, "t1", nil)
	assert.Len(t, all, 2)
}

func TestUpdateReading_SparsePatch(t *testing.T) {
	g, _, readings, _ := newTestGateway()
	readings.readings["r1"] = model.Reading{
		ID: "r1", TrackID: "t1", TrackDate: "2024-06-01",
		Session: "Q1", Pair: "3",
	}

	patch := &model.ReadingPatch{}
	patch.SetSession("Q2")

	updated := g.UpdateReading(context.Background(), crew, "r1", patch)
	require.NotNil(t, updated)
	assert.Equal(t, "Q2", updated.Session)
	assert.Equal(t, "3", updated.Pair, "untouched fields survive a sparse patch")
}

func TestUpdateReading_NotFound(t *testing.T) {
	g, _, _, _ := newTestGateway()

	patch := &model.ReadingPatch{Session: &sql.NullString{String: "Q2", Valid: true}}
	assert.Nil(t, g.UpdateReading(context.Background(), crew, "ghost", patch))
}

func TestDeleteReading_CleansUpObjects(t *testing.T) {
	g, _, readings, photos := newTestGateway()
	readings.readings["r1"] = model.Reading{ID: "r1", LeftPhotoPath: "readings/r1/left-1.jpg"}

	ok := g.DeleteReading(context.Background(), crew, "r1")
	require.True(t, ok)
	assert.NotContains(t, readings.readings, "r1")
	assert.Equal(t, []string{"RemoveReadingObjects:r1"}, photos.removed)
}

func TestDeleteReading_NotFound(t *testing.T) {
	g, _, _, photos := newTestGateway()

	ok := g.DeleteReading(context.Background(), crew, "ghost")
	assert.False(t, ok)
	assert.Empty(t, photos.removed)
}

func TestUploadPhoto(t *testing.T) {
	g, _, readings, photos := newTestGateway()
	readings.readings["r1"] = model.Reading{
		ID:       "r1",
		LeftLane: model.LaneReading{ImageURI: "file:///tmp/cam.jpg"},
	}

	path := g.UploadPhoto(context.Background(), crew, "r1", "left", "IMG_0042.JPG",
		strings.NewReader("jpegbytes"), 9)
	assert.Equal(t, "readings/r1/left-1735689600000.jpg", path)
	assert.Equal(t, []string{path}, photos.uploads)

	// The stored path becomes authoritative and the device-local URI is gone.
	stored := readings.readings["r1"]
	assert.Equal(t, path, stored.LeftPhotoPath)
	assert.Empty(t, stored.LeftLane.ImageURI)
}

func TestUploadPhoto_Anonymous(t *testing.T) {
	g, _, _, photos := newTestGateway()

	path := g.UploadPhoto(context.Background(), auth.Anonymous(), "r1", "left", "a.jpg",
		strings.NewReader(""), 0)
	assert.Empty(t, path)
	assert.Empty(t, photos.uploads)
}

func TestSignedURL(t *testing.T) {
	g, _, _, photos := newTestGateway()

	url := g.SignedURL(context.Background(), "readings/r1/left-1.jpg", time.Hour)
	assert.Equal(t, "https://signed.test/readings/r1/left-1.jpg", url)
	assert.Equal(t, 1, photos.signed)
}

func TestSignedURL_SignerDown(t *testing.T) {
	g, _, _, photos := newTestGateway()
	photos.signFail = true

	assert.Empty(t, g.SignedURL(context.Background(), "readings/r1/left-1.jpg", time.Hour))
}

func TestPhotoURLs(t *testing.T) {
	g, _, _, photos := newTestGateway()

	reading := &model.Reading{
		LeftPhotoPath: "readings/r1/left-1.jpg",
		RightLane:     model.LaneReading{ImageURI: "https://cdn.example.com/right.jpg"},
	}

	left, right := g.PhotoURLs(context.Background(), reading, time.Hour)
	assert.Equal(t, "https://signed.test/readings/r1/left-1.jpg", left)
	assert.Equal(t, "https://cdn.example.com/right.jpg", right)
	assert.Equal(t, 1, photos.signed, "direct URLs never hit the signer")
}

func TestListReadingsByDay(t *testing.T) {
	g, _, readings, _ := newTestGateway()
	readings.readings["r1"] = model.Reading{ID: "r1", TrackID: "t1", TrackDate: "2024-06-01", Date: "2024-06-01"}
	readings.readings["r2"] = model.Reading{ID: "r2", TrackID: "t1", TrackDate: "2024-06-01", Date: "2024-06-01"}
	readings.readings["r3"] = model.Reading{ID: "r3", TrackID: "t1", TrackDate: "2024-06-02", Date: "2024-06-02"}

	days := g.ListReadingsByDay(context.Background(), crew, "t1", nil)
	require.Len(t, days, 2)

	total := 0
	for _, day := range days {
		total += len(day.Readings)
		for _, reading := range day.Readings {
			assert.Equal(t, day.Date, reading.Date, fmt.Sprintf("reading %s in wrong bucket", reading.ID))
		}
	}
	assert.Equal(t, 3, total)
}

func TestCreateTrackThenReading_EndToEnd(t *testing.T) {
	g, _, _, _ := newTestGateway()
	ctx := context.Background()

	track := g.CreateTrack(ctx, crew, "Lane 7", "Park")
	require.NotNil(t, track)

	created := g.CreateReading(ctx, crew, model.Reading{
		TrackID:   track.ID,
		Timestamp: 1735689600000,
		TimeZone:  "America/Chicago",
		LeftLane:  model.LaneReading{TrackTemp: "95"},
		RightLane: model.LaneReading{TrackTemp: "94"},
	})
	require.NotNil(t, created)

	fetched := g.GetReading(ctx, crew, created.ID)
	require.NotNil(t, fetched)
	assert.Equal(t, "2024-12-31", fetched.TrackDate)
	require.NotNil(t, fetched.Year)
	assert.Equal(t, 2024, *fetched.Year)
	assert.Equal(t, "95", fetched.LeftLane.TrackTemp)
	assert.Equal(t, "94", fetched.RightLane.TrackTemp)
	assert.False(t, fetched.HasWeather())
	assert.Nil(t, fetched.TempF)
	assert.Nil(t, fetched.UVIndex)

	listed := g.ListReadings(ctx, crew, track.ID, nil)
	require.Len(t, listed, 1)
}

func TestSortTracksByName(t *testing.T) {
	tracks := []model.Track{{Name: "Thunder Valley"}, {Name: "Atlanta"}, {Name: "Maple Grove"}}
	SortTracksByName(tracks)
	assert.Equal(t, "Atlanta", tracks[0].Name)
	assert.Equal(t, "Thunder Valley", tracks[2].Name)
}
