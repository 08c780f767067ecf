// Package workflow turns a completed inspection form into durable state:
// it allocates the consecutive number, writes the inspection row, then
// uploads the captured photos with best-effort per-photo completion.
package workflow

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"inspection-service/models"
	"inspection-service/storage"

	"github.com/apex/log"
)

const maxPlateLength = 6

// SequenceAllocator hands out the next inspection number
type SequenceAllocator interface {
	NextSeq(ctx context.Context) (int, error)
}

// RecordStore persists inspection and photo rows
type RecordStore interface {
	InsertInspection(ctx context.Context, insp *models.Inspection) error
	InsertPhoto(ctx context.Context, photo *models.Photo) error
	GetInspection(ctx context.Context, id string) (*models.Inspection, error)
}

// Notifier pushes a freshly stored inspection to read views. Failures are
// logged and never affect the submission result.
type Notifier interface {
	NotifyInspection(insp *models.Inspection)
}

// Workflow orchestrates inspection submissions
type Workflow struct {
	alloc        SequenceAllocator
	records      RecordStore
	blobs        storage.Store
	notifiers    []Notifier
	checklist    models.Checklist
	requirePhoto bool
	workers      int
}

// New creates a submission workflow. workers bounds how many photo
// uploads run at once.
func New(alloc SequenceAllocator, records RecordStore, blobs storage.Store,
	checklist models.Checklist, requirePhoto bool, workers int, notifiers ...Notifier) *Workflow {
	if workers < 1 {
		workers = 1
	}
	return &Workflow{
		alloc:        alloc,
		records:      records,
		blobs:        blobs,
		notifiers:    notifiers,
		checklist:    checklist,
		requirePhoto: requirePhoto,
		workers:      workers,
	}
}

// Checklist returns the active photo checklist
func (w *Workflow) Checklist() models.Checklist {
	return w.checklist
}

// Submit validates the form, allocates the next consecutive number and
// persists the inspection with its photos. Individual photo failures do
// not roll back the record or other photos; the affected checklist slots
// are reported back for manual retry.
func (w *Workflow) Submit(ctx context.Context, user *models.User, req models.SubmitInspectionRequest) (*models.SubmitInspectionResponse, error) {
	if user == nil {
		return nil, ErrAuthentication
	}

	plate := strings.ToUpper(strings.TrimSpace(req.Plate))
	if plate == "" {
		return nil, validationErr("plate", "must not be empty")
	}
	if len(plate) > maxPlateLength {
		return nil, validationErr("plate", fmt.Sprintf("must be at most %d characters", maxPlateLength))
	}

	expiry, err := normalizeExpiry(req.ExtinguisherExpiry)
	if err != nil {
		return nil, err
	}

	photos, err := w.decodePhotos(req.Photos)
	if err != nil {
		return nil, err
	}
	if w.requirePhoto && len(photos) == 0 {
		return nil, validationErr("photos", "at least one photo is required")
	}

	seq, err := w.alloc.NextSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}

	insp := &models.Inspection{
		ID:                 generateInspectionID(),
		Seq:                seq,
		Plate:              plate,
		Notes:              strings.TrimSpace(req.Notes),
		ExtinguisherExpiry: expiry,
		InspectorID:        user.ID,
		InspectorName:      user.Name,
		InspectorEmail:     user.Email,
		Agency:             user.Agency,
		CreatedAt:          time.Now(),
	}

	// The inspection row must be durable before any photo row references
	// it; a reader must never observe an orphan photo.
	if err := w.records.InsertInspection(ctx, insp); err != nil {
		log.Errorf("Failed to insert inspection #%04d: %v", seq, err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	stored, failed := w.storePhotos(ctx, insp, photos)
	insp.Photos = stored

	w.notify(insp)

	log.Infof("Stored inspection #%04d plate %s with %d photos (%d failed)",
		insp.Seq, insp.Plate, len(stored), len(failed))

	return &models.SubmitInspectionResponse{
		Inspection:       insp,
		FailedPhotoTypes: failed,
	}, nil
}

// RetryPhotos re-runs the photo phase for checklist slots that failed in
// an earlier submission. Re-adding an already stored slot replaces it.
func (w *Workflow) RetryPhotos(ctx context.Context, user *models.User, inspectionID string, rawPhotos map[string]string) (*models.SubmitInspectionResponse, error) {
	if user == nil {
		return nil, ErrAuthentication
	}

	insp, err := w.records.GetInspection(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	photos, err := w.decodePhotos(rawPhotos)
	if err != nil {
		return nil, err
	}
	if len(photos) == 0 {
		return nil, validationErr("photos", "must not be empty")
	}

	stored, failed := w.storePhotos(ctx, insp, photos)
	insp.Photos = append(insp.Photos, stored...)

	w.notify(insp)

	return &models.SubmitInspectionResponse{
		Inspection:       insp,
		FailedPhotoTypes: failed,
	}, nil
}

type capturedPhoto struct {
	photoType string
	data      []byte
}

// decodePhotos validates slot keys against the checklist and decodes the
// base64 payloads. Runs before any storage call.
func (w *Workflow) decodePhotos(raw map[string]string) ([]capturedPhoto, error) {
	photos := make([]capturedPhoto, 0, len(raw))
	for _, item := range w.checklist {
		encoded, ok := raw[item.Key]
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, validationErr("photos", fmt.Sprintf("slot %s is not valid base64", item.Key))
		}
		if len(data) == 0 {
			return nil, validationErr("photos", fmt.Sprintf("slot %s is empty", item.Key))
		}
		photos = append(photos, capturedPhoto{photoType: item.Key, data: data})
	}

	for key := range raw {
		if !w.checklist.Has(key) {
			return nil, validationErr("photos", fmt.Sprintf("unknown checklist slot %s", key))
		}
	}

	return photos, nil
}

// storePhotos uploads the captured photos with bounded concurrency. Each
// photo is an independent sub-operation: upload the bytes, then record
// the metadata row. Failed slots are collected, not propagated.
func (w *Workflow) storePhotos(ctx context.Context, insp *models.Inspection, photos []capturedPhoto) ([]models.Photo, []string) {
	var mu sync.Mutex
	stored := []models.Photo{}
	failed := []string{}

	sem := make(chan struct{}, w.workers)
	var wg sync.WaitGroup

	for _, photo := range photos {
		wg.Add(1)
		go func(p capturedPhoto) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			row, err := w.storeOnePhoto(ctx, insp, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warnf("Failed to store photo %s for inspection #%04d: %v",
					p.photoType, insp.Seq, err)
				failed = append(failed, p.photoType)
				return
			}
			stored = append(stored, *row)
		}(photo)
	}
	wg.Wait()

	// Deterministic checklist ordering for the response
	sortByChecklist(w.checklist, stored, failed)
	return stored, failed
}

func (w *Workflow) storeOnePhoto(ctx context.Context, insp *models.Inspection, p capturedPhoto) (*models.Photo, error) {
	path := fmt.Sprintf("alistamientos/%s/%s-%d.jpg",
		insp.Plate, p.photoType, time.Now().UnixMilli())

	url, err := w.blobs.Upload(ctx, path, p.data)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	photo := &models.Photo{
		InspectionID: insp.ID,
		PhotoType:    p.photoType,
		StorageURL:   url,
		CreatedAt:    time.Now(),
	}
	if err := w.records.InsertPhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("metadata insert failed: %w", err)
	}
	return photo, nil
}

func (w *Workflow) notify(insp *models.Inspection) {
	for _, n := range w.notifiers {
		n.NotifyInspection(insp)
	}
}

func sortByChecklist(checklist models.Checklist, stored []models.Photo, failed []string) {
	order := make(map[string]int, len(checklist))
	for i, item := range checklist {
		order[item.Key] = i
	}
	sort.Slice(stored, func(i, j int) bool {
		return order[stored[i].PhotoType] < order[stored[j].PhotoType]
	})
	sort.Slice(failed, func(i, j int) bool {
		return order[failed[i]] < order[failed[j]]
	})
}

func normalizeExpiry(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return nil, validationErr("extinguisher_expiry", "must be a YYYY-MM-DD date")
	}
	return &raw, nil
}

func generateInspectionID() string {
	return fmt.Sprintf("insp_%d", time.Now().UnixNano())
}
