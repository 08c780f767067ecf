package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"inspection-service/models"

	"github.com/apex/log"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// InspectionService handles inspection and photo persistence
type InspectionService struct {
	db *sql.DB
}

// NewInspectionService creates a new inspection service instance
func NewInspectionService(db *sql.DB) *InspectionService {
	return &InspectionService{db: db}
}

// InsertInspection persists a new inspection row. The row must exist
// durably before any photo row referencing it is written.
func (s *InspectionService) InsertInspection(ctx context.Context, insp *models.Inspection) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inspections
		   (id, seq, plate, notes, extinguisher_expiry, inspector_id, inspector_name, inspector_email, agency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insp.ID, insp.Seq, insp.Plate, insp.Notes, insp.ExtinguisherExpiry,
		insp.InspectorID, insp.InspectorName, insp.InspectorEmail, insp.Agency)
	if err != nil {
		return fmt.Errorf("failed to insert inspection: %w", err)
	}
	return nil
}

// InsertPhoto persists a photo row for an inspection. Re-adding the same
// checklist slot replaces the stored URL, so a manual retry of a failed
// photo is idempotent.
func (s *InspectionService) InsertPhoto(ctx context.Context, photo *models.Photo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inspection_photos (inspection_id, photo_type, storage_url)
		 VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE storage_url = VALUES(storage_url)`,
		photo.InspectionID, photo.PhotoType, photo.StorageURL)
	if err != nil {
		return fmt.Errorf("failed to insert photo %s for inspection %s: %w",
			photo.PhotoType, photo.InspectionID, err)
	}
	return nil
}

// ListInspections returns inspections newest first, optionally filtered by
// a case-insensitive substring match on the plate. Photos that cannot be
// read do not fail the listing; the record comes back with an empty list.
func (s *InspectionService) ListInspections(ctx context.Context, plateFilter string) ([]models.Inspection, error) {
	query := `SELECT id, seq, plate, notes, extinguisher_expiry,
	                 inspector_id, inspector_name, inspector_email, agency, created_at
	          FROM inspections`
	args := []interface{}{}

	filter := strings.TrimSpace(plateFilter)
	if filter != "" {
		query += ` WHERE UPPER(plate) LIKE CONCAT('%', UPPER(?), '%')`
		args = append(args, filter)
	}
	query += ` ORDER BY created_at DESC, seq DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	inspections := []models.Inspection{}
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection row: %w", err)
		}
		inspections = append(inspections, *insp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over inspection rows: %w", err)
	}

	for i := range inspections {
		photos, err := s.photosForInspection(ctx, inspections[i].ID)
		if err != nil {
			log.Warnf("Failed to load photos for inspection %s: %v", inspections[i].ID, err)
			photos = []models.Photo{}
		}
		inspections[i].Photos = photos
	}

	return inspections, nil
}

// GetInspection returns one inspection with its photos
func (s *InspectionService) GetInspection(ctx context.Context, id string) (*models.Inspection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, seq, plate, notes, extinguisher_expiry,
		        inspector_id, inspector_name, inspector_email, agency, created_at
		 FROM inspections WHERE id = ?`, id)

	insp, err := scanInspection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query inspection %s: %w", id, err)
	}

	photos, err := s.photosForInspection(ctx, insp.ID)
	if err != nil {
		log.Warnf("Failed to load photos for inspection %s: %v", insp.ID, err)
		photos = []models.Photo{}
	}
	insp.Photos = photos

	return insp, nil
}

// DeleteInspection removes an inspection and its photo rows. Remaining
// records keep their sequence numbers.
func (s *InspectionService) DeleteInspection(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM inspections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inspection %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *InspectionService) photosForInspection(ctx context.Context, inspectionID string) ([]models.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, inspection_id, photo_type, storage_url, created_at
		 FROM inspection_photos WHERE inspection_id = ? ORDER BY id`, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.InspectionID, &p.PhotoType, &p.StorageURL, &p.CreatedAt); err != nil {
			log.Warnf("Cannot scan photo row for inspection %s: %v", inspectionID, err)
			continue
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInspection(row rowScanner) (*models.Inspection, error) {
	var insp models.Inspection
	var notes sql.NullString
	var expiry sql.NullTime
	if err := row.Scan(&insp.ID, &insp.Seq, &insp.Plate, &notes, &expiry,
		&insp.InspectorID, &insp.InspectorName, &insp.InspectorEmail,
		&insp.Agency, &insp.CreatedAt); err != nil {
		return nil, err
	}
	insp.Notes = notes.String
	if expiry.Valid {
		formatted := expiry.Time.Format("2006-01-02")
		insp.ExtinguisherExpiry = &formatted
	}
	return &insp, nil
}
