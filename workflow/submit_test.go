package workflow

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"inspection-service/models"
)

type fakeAllocator struct {
	mu    sync.Mutex
	next  int
	calls int
	err   error
}

func (a *fakeAllocator) NextSeq(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return 0, a.err
	}
	a.next++
	return a.next, nil
}

type fakeRecords struct {
	mu             sync.Mutex
	inspections    map[string]*models.Inspection
	photos         []models.Photo
	insertErr      error
	photoErrTypes  map[string]bool
	orphanObserved bool
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{inspections: map[string]*models.Inspection{}}
}

func (r *fakeRecords) InsertInspection(ctx context.Context, insp *models.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	copied := *insp
	r.inspections[insp.ID] = &copied
	return nil
}

func (r *fakeRecords) InsertPhoto(ctx context.Context, photo *models.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inspections[photo.InspectionID]; !ok {
		r.orphanObserved = true
		return errors.New("no parent inspection")
	}
	if r.photoErrTypes[photo.PhotoType] {
		return errors.New("photo row insert failed")
	}
	r.photos = append(r.photos, *photo)
	return nil
}

func (r *fakeRecords) GetInspection(ctx context.Context, id string) (*models.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	insp, ok := r.inspections[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *insp
	copied.Photos = nil
	for _, p := range r.photos {
		if p.InspectionID == id {
			copied.Photos = append(copied.Photos, p)
		}
	}
	return &copied, nil
}

type fakeBlobs struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	failTypes map[string]bool
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploads: map[string][]byte{}}
}

func (b *fakeBlobs) Upload(ctx context.Context, path string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for photoType := range b.failTypes {
		if strings.Contains(path, photoType) {
			return "", errors.New("blob store unavailable")
		}
	}
	b.uploads[path] = data
	return "http://photos/" + path, nil
}

func testUser() *models.User {
	return &models.User{ID: "u1", Name: "Jane", Email: "jane@x.com", Agency: "BOG"}
}

func encodePhoto(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func newTestWorkflow(alloc *fakeAllocator, records *fakeRecords, blobs *fakeBlobs, requirePhoto bool) *Workflow {
	return New(alloc, records, blobs, models.DefaultChecklist(), requirePhoto, 4)
}

func TestSubmit(t *testing.T) {
	alloc := &fakeAllocator{next: 10}
	records := newFakeRecords()
	blobs := newFakeBlobs()
	w := newTestWorkflow(alloc, records, blobs, false)

	result, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate: "XYZ987",
		Photos: map[string]string{
			"frontal": encodePhoto("front-bytes"),
			"trasera": encodePhoto("rear-bytes"),
		},
	})
	if err != nil {
		t.Fatalf("Submit: unexpected error: %v", err)
	}

	insp := result.Inspection
	if insp.Seq != 11 {
		t.Errorf("Submit: expected seq 11, got %d", insp.Seq)
	}
	if insp.Plate != "XYZ987" {
		t.Errorf("Submit: expected plate XYZ987, got %s", insp.Plate)
	}
	if insp.InspectorName != "Jane" || insp.InspectorEmail != "jane@x.com" || insp.Agency != "BOG" {
		t.Errorf("Submit: inspector snapshot not copied: %+v", insp)
	}
	if len(insp.Photos) != 2 {
		t.Errorf("Submit: expected 2 photos, got %d", len(insp.Photos))
	}
	if len(result.FailedPhotoTypes) != 0 {
		t.Errorf("Submit: expected no failed photos, got %v", result.FailedPhotoTypes)
	}
	if len(records.photos) != 2 {
		t.Errorf("Submit: expected 2 photo rows, got %d", len(records.photos))
	}
	if len(blobs.uploads) != 2 {
		t.Errorf("Submit: expected 2 uploads, got %d", len(blobs.uploads))
	}
}

// An empty plate is rejected before the allocator or either store is
// touched.
func TestSubmitEmptyPlate(t *testing.T) {
	alloc := &fakeAllocator{}
	records := newFakeRecords()
	blobs := newFakeBlobs()
	w := newTestWorkflow(alloc, records, blobs, false)

	for _, plate := range []string{"", "   ", "\t"} {
		_, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
			Plate:  plate,
			Photos: map[string]string{"frontal": encodePhoto("x")},
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("plate %q: expected ValidationError, got %v", plate, err)
		}
	}

	if alloc.calls != 0 {
		t.Errorf("expected zero allocator calls, got %d", alloc.calls)
	}
	if len(records.inspections) != 0 || len(blobs.uploads) != 0 {
		t.Error("expected zero store writes")
	}
}

func TestSubmitNormalizesPlate(t *testing.T) {
	w := newTestWorkflow(&fakeAllocator{}, newFakeRecords(), newFakeBlobs(), false)

	result, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate: " abc123 ",
	})
	if err != nil {
		t.Fatalf("Submit: unexpected error: %v", err)
	}
	if result.Inspection.Plate != "ABC123" {
		t.Errorf("Submit: expected normalized plate ABC123, got %s", result.Inspection.Plate)
	}
}

func TestSubmitPlateTooLong(t *testing.T) {
	w := newTestWorkflow(&fakeAllocator{}, newFakeRecords(), newFakeBlobs(), false)

	_, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{Plate: "ABC1234"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Submit: expected ValidationError for long plate, got %v", err)
	}
}

func TestSubmitUnknownChecklistSlot(t *testing.T) {
	alloc := &fakeAllocator{}
	w := newTestWorkflow(alloc, newFakeRecords(), newFakeBlobs(), false)

	_, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate:  "ABC123",
		Photos: map[string]string{"techo_exterior": encodePhoto("x")},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Submit: expected ValidationError for unknown slot, got %v", err)
	}
	if alloc.calls != 0 {
		t.Errorf("expected zero allocator calls, got %d", alloc.calls)
	}
}

func TestSubmitInvalidExpiryDate(t *testing.T) {
	w := newTestWorkflow(&fakeAllocator{}, newFakeRecords(), newFakeBlobs(), false)

	_, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate:              "ABC123",
		ExtinguisherExpiry: "12/31/2026",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Submit: expected ValidationError for bad date, got %v", err)
	}
}

func TestSubmitNoUser(t *testing.T) {
	alloc := &fakeAllocator{}
	w := newTestWorkflow(alloc, newFakeRecords(), newFakeBlobs(), false)

	_, err := w.Submit(context.Background(), nil, models.SubmitInspectionRequest{Plate: "ABC123"})
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("Submit: expected ErrAuthentication, got %v", err)
	}
	if alloc.calls != 0 {
		t.Errorf("expected zero allocator calls, got %d", alloc.calls)
	}
}

// The photo-required rule is a policy switch: permissive by default,
// strict when enabled.
func TestSubmitRequirePhotoPolicy(t *testing.T) {
	permissive := newTestWorkflow(&fakeAllocator{}, newFakeRecords(), newFakeBlobs(), false)
	if _, err := permissive.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{Plate: "ABC123"}); err != nil {
		t.Errorf("permissive: unexpected error: %v", err)
	}

	strict := newTestWorkflow(&fakeAllocator{}, newFakeRecords(), newFakeBlobs(), true)
	_, err := strict.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{Plate: "ABC123"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("strict: expected ValidationError, got %v", err)
	}
}

func TestSubmitAllocatorFailure(t *testing.T) {
	alloc := &fakeAllocator{err: errors.New("storage unavailable")}
	records := newFakeRecords()
	w := newTestWorkflow(alloc, records, newFakeBlobs(), false)

	_, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{Plate: "ABC123"})
	if !errors.Is(err, ErrAllocation) {
		t.Errorf("Submit: expected ErrAllocation, got %v", err)
	}
	if len(records.inspections) != 0 {
		t.Error("Submit: nothing may be persisted when allocation fails")
	}
}

// A failed record insert burns the allocated number; the retry gets a
// fresh one.
func TestSubmitRecordInsertFailureBurnsNumber(t *testing.T) {
	alloc := &fakeAllocator{next: 10}
	records := newFakeRecords()
	records.insertErr = errors.New("insert failed")
	w := newTestWorkflow(alloc, records, newFakeBlobs(), false)

	_, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{Plate: "ABC123"})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Submit: expected ErrPersistence, got %v", err)
	}

	records.insertErr = nil
	result, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{Plate: "ABC123"})
	if err != nil {
		t.Fatalf("retry: unexpected error: %v", err)
	}
	if result.Inspection.Seq != 12 {
		t.Errorf("retry: expected fresh seq 12 after burned 11, got %d", result.Inspection.Seq)
	}
}

// One failing photo must not roll back the record or the other photos.
func TestSubmitPartialPhotoFailure(t *testing.T) {
	alloc := &fakeAllocator{}
	records := newFakeRecords()
	blobs := newFakeBlobs()
	blobs.failTypes = map[string]bool{"llanta_p1": true}
	w := newTestWorkflow(alloc, records, blobs, false)

	result, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate: "ABC123",
		Photos: map[string]string{
			"frontal":   encodePhoto("a"),
			"trasera":   encodePhoto("b"),
			"llanta_p1": encodePhoto("c"),
		},
	})
	if err != nil {
		t.Fatalf("Submit: unexpected error: %v", err)
	}

	if len(result.FailedPhotoTypes) != 1 || result.FailedPhotoTypes[0] != "llanta_p1" {
		t.Errorf("Submit: expected failed list [llanta_p1], got %v", result.FailedPhotoTypes)
	}
	if len(result.Inspection.Photos) != 2 {
		t.Errorf("Submit: expected 2 stored photos, got %d", len(result.Inspection.Photos))
	}
	for _, p := range result.Inspection.Photos {
		if p.PhotoType == "llanta_p1" {
			t.Error("Submit: failed slot must not appear among stored photos")
		}
	}
	if len(records.inspections) != 1 {
		t.Error("Submit: the inspection record must survive photo failures")
	}
}

func TestSubmitPhotoMetadataFailure(t *testing.T) {
	records := newFakeRecords()
	records.photoErrTypes = map[string]bool{"trasera": true}
	w := newTestWorkflow(&fakeAllocator{}, records, newFakeBlobs(), false)

	result, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate: "ABC123",
		Photos: map[string]string{
			"frontal": encodePhoto("a"),
			"trasera": encodePhoto("b"),
		},
	})
	if err != nil {
		t.Fatalf("Submit: unexpected error: %v", err)
	}
	if len(result.FailedPhotoTypes) != 1 || result.FailedPhotoTypes[0] != "trasera" {
		t.Errorf("Submit: expected failed list [trasera], got %v", result.FailedPhotoTypes)
	}
}

// A photo row is never written before its parent inspection row exists.
func TestSubmitRecordPrecedesPhotos(t *testing.T) {
	records := newFakeRecords()
	w := newTestWorkflow(&fakeAllocator{}, records, newFakeBlobs(), false)

	photos := map[string]string{}
	for _, item := range models.DefaultChecklist() {
		photos[item.Key] = encodePhoto("data-" + item.Key)
	}

	result, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate:  "ABC123",
		Photos: photos,
	})
	if err != nil {
		t.Fatalf("Submit: unexpected error: %v", err)
	}
	if records.orphanObserved {
		t.Error("Submit: observed a photo row without its parent inspection")
	}
	if len(result.FailedPhotoTypes) != 0 {
		t.Errorf("Submit: expected no failures, got %v", result.FailedPhotoTypes)
	}
	if len(result.Inspection.Photos) != len(models.DefaultChecklist()) {
		t.Errorf("Submit: expected %d photos, got %d", len(models.DefaultChecklist()), len(result.Inspection.Photos))
	}
}

// Two simultaneous submissions never share a sequence number.
func TestSubmitConcurrentDistinctSeq(t *testing.T) {
	alloc := &fakeAllocator{next: 10}
	records := newFakeRecords()
	w := newTestWorkflow(alloc, records, newFakeBlobs(), false)

	const submitters = 8
	results := make(chan int, submitters)
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
				Plate: fmt.Sprintf("CAR%03d", n),
			})
			if err != nil {
				t.Errorf("submitter %d: unexpected error: %v", n, err)
				return
			}
			results <- result.Inspection.Seq
		}(i)
	}
	wg.Wait()
	close(results)

	seen := map[int]bool{}
	for seq := range results {
		if seq <= 10 {
			t.Errorf("expected seq above previous max 10, got %d", seq)
		}
		if seen[seq] {
			t.Errorf("sequence number %d allocated twice", seq)
		}
		seen[seq] = true
	}
	if len(seen) != submitters {
		t.Errorf("expected %d distinct sequence numbers, got %d", submitters, len(seen))
	}
}

func TestRetryPhotos(t *testing.T) {
	records := newFakeRecords()
	blobs := newFakeBlobs()
	blobs.failTypes = map[string]bool{"llanta_p1": true}
	w := newTestWorkflow(&fakeAllocator{}, records, blobs, false)

	first, err := w.Submit(context.Background(), testUser(), models.SubmitInspectionRequest{
		Plate: "ABC123",
		Photos: map[string]string{
			"frontal":   encodePhoto("a"),
			"llanta_p1": encodePhoto("b"),
		},
	})
	if err != nil {
		t.Fatalf("Submit: unexpected error: %v", err)
	}
	if len(first.FailedPhotoTypes) != 1 {
		t.Fatalf("Submit: expected one failed slot, got %v", first.FailedPhotoTypes)
	}

	// Blob store recovered; retry just the failed slot
	blobs.failTypes = nil
	retry, err := w.RetryPhotos(context.Background(), testUser(), first.Inspection.ID,
		map[string]string{"llanta_p1": encodePhoto("b")})
	if err != nil {
		t.Fatalf("RetryPhotos: unexpected error: %v", err)
	}
	if len(retry.FailedPhotoTypes) != 0 {
		t.Errorf("RetryPhotos: expected no failures, got %v", retry.FailedPhotoTypes)
	}
	if len(retry.Inspection.Photos) != 2 {
		t.Errorf("RetryPhotos: expected 2 photos after retry, got %d", len(retry.Inspection.Photos))
	}
}

func TestRetryPhotosNoUser(t *testing.T) {
	w := newTestWorkflow(&fakeAllocator{}, newFakeRecords(), newFakeBlobs(), false)

	_, err := w.RetryPhotos(context.Background(), nil, "insp_1", map[string]string{"frontal": encodePhoto("x")})
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("RetryPhotos: expected ErrAuthentication, got %v", err)
	}
}
