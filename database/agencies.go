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

var (
	// ErrDuplicateAbbreviation is returned when the abbreviation is taken
	ErrDuplicateAbbreviation = errors.New("abbreviation already in use")
	// ErrInvalidAbbreviation is returned when the abbreviation is empty
	// or longer than 5 characters
	ErrInvalidAbbreviation = errors.New("abbreviation must be 1 to 5 characters")
)

// AgencyService handles the agency / department reference list
type AgencyService struct {
	db *sql.DB
}

// NewAgencyService creates a new agency service instance
func NewAgencyService(db *sql.DB) *AgencyService {
	return &AgencyService{db: db}
}

// ListAgencies returns all agencies ordered by name
func (s *AgencyService) ListAgencies(ctx context.Context) ([]models.Agency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, abbreviation FROM agencies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agencies: %w", err)
	}
	defer rows.Close()

	agencies := []models.Agency{}
	for rows.Next() {
		var a models.Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.Abbreviation); err != nil {
			return nil, fmt.Errorf("failed to scan agency row: %w", err)
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

// CreateAgency adds an agency. Abbreviations are uppercased and must be
// unique.
func (s *AgencyService) CreateAgency(ctx context.Context, req models.CreateAgencyRequest) (*models.Agency, error) {
	abbr := strings.ToUpper(strings.TrimSpace(req.Abbreviation))
	if abbr == "" || len(abbr) > 5 {
		return nil, ErrInvalidAbbreviation
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agencies WHERE abbreviation = ?`, abbr).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to check abbreviation uniqueness: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateAbbreviation
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO agencies (name, abbreviation) VALUES (?, ?)`, req.Name, abbr)
	if err != nil {
		return nil, fmt.Errorf("failed to insert agency: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read agency id: %w", err)
	}

	return &models.Agency{ID: int(id), Name: req.Name, Abbreviation: abbr}, nil
}

// DeleteAgency removes an agency from the reference list
func (s *AgencyService) DeleteAgency(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM agencies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agency %d: %w", id, err)
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

// SeedDefaultAgencies inserts the standard department list if the table
// is empty
func (s *AgencyService) SeedDefaultAgencies(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agencies`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count agencies: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, a := range defaultAgencies {
		if _, err := s.db.ExecContext(ctx,
			`INSERT IGNORE INTO agencies (name, abbreviation) VALUES (?, ?)`,
			a.Name, a.Abbreviation); err != nil {
			return fmt.Errorf("failed to seed agency %s: %w", a.Abbreviation, err)
		}
	}
	log.Infof("Seeded %d default agencies", len(defaultAgencies))
	return nil
}

var defaultAgencies = []models.Agency{
	{Name: "Amazonas", Abbreviation: "AMA"},
	{Name: "Antioquia", Abbreviation: "ANT"},
	{Name: "Arauca", Abbreviation: "ARA"},
	{Name: "Atlántico", Abbreviation: "ATL"},
	{Name: "Bolívar", Abbreviation: "BOL"},
	{Name: "Boyacá", Abbreviation: "BOY"},
	{Name: "Caldas", Abbreviation: "CAL"},
	{Name: "Caquetá", Abbreviation: "CAQ"},
	{Name: "Casanare", Abbreviation: "CAS"},
	{Name: "Cauca", Abbreviation: "CAU"},
	{Name: "Cesar", Abbreviation: "CES"},
	{Name: "Chocó", Abbreviation: "CHO"},
	{Name: "Córdoba", Abbreviation: "COR"},
	{Name: "Cundinamarca", Abbreviation: "CUN"},
	{Name: "Guainía", Abbreviation: "GUA"},
	{Name: "Guaviare", Abbreviation: "GUV"},
	{Name: "Huila", Abbreviation: "HUI"},
	{Name: "La Guajira", Abbreviation: "LAG"},
	{Name: "Magdalena", Abbreviation: "MAG"},
	{Name: "Meta", Abbreviation: "MET"},
	{Name: "Nariño", Abbreviation: "NAR"},
	{Name: "Norte de Santander", Abbreviation: "NSA"},
	{Name: "Putumayo", Abbreviation: "PUT"},
	{Name: "Quindío", Abbreviation: "QUI"},
	{Name: "Risaralda", Abbreviation: "RIS"},
	{Name: "San Andrés y Providencia", Abbreviation: "SAP"},
	{Name: "Santander", Abbreviation: "SAN"},
	{Name: "Sucre", Abbreviation: "SUC"},
	{Name: "Tolima", Abbreviation: "TOL"},
	{Name: "Valle del Cauca", Abbreviation: "VAL"},
	{Name: "Vaupés", Abbreviation: "VAU"},
	{Name: "Vichada", Abbreviation: "VIC"},
}
