package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/pinchvol/internal/gesture"
)

// Mapping is a named gesture.Mapping.
type Mapping struct {
	Name string `json:"name"`
	gesture.Mapping
	UpdatedAt time.Time `json:"updated_at"`
}

// MappingRepository stores named mappings.
type MappingRepository struct {
	db *sql.DB
}

// Mappings returns the mapping repository for this store.
func (s *Store) Mappings() *MappingRepository {
	return &MappingRepository{db: s.db}
}

// Seed inserts m under name unless a mapping with that name already exists.
func (r *MappingRepository) Seed(name string, m gesture.Mapping) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO mappings (name, domain_low, domain_high, range_low, range_high, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, m.DomainLow, m.DomainHigh, m.RangeLow, m.RangeHigh, time.Now(),
	)
	return err
}

// Put inserts or replaces a mapping.
func (r *MappingRepository) Put(m *Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.UpdatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO mappings (name, domain_low, domain_high, range_low, range_high, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			domain_low = excluded.domain_low,
			domain_high = excluded.domain_high,
			range_low = excluded.range_low,
			range_high = excluded.range_high,
			updated_at = excluded.updated_at`,
		m.Name, m.DomainLow, m.DomainHigh, m.RangeLow, m.RangeHigh, m.UpdatedAt,
	)
	return err
}

// Get retrieves a mapping by name.
func (r *MappingRepository) Get(name string) (*Mapping, error) {
	m := &Mapping{}
	err := r.db.QueryRow(
		`SELECT name, domain_low, domain_high, range_low, range_high, updated_at
		 FROM mappings WHERE name = ?`,
		name,
	).Scan(&m.Name, &m.DomainLow, &m.DomainHigh, &m.RangeLow, &m.RangeHigh, &m.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List returns all mappings ordered by name.
func (r *MappingRepository) List() ([]*Mapping, error) {
	rows, err := r.db.Query(
		`SELECT name, domain_low, domain_high, range_low, range_high, updated_at
		 FROM mappings ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*Mapping
	for rows.Next() {
		m := &Mapping{}
		if err := rows.Scan(&m.Name, &m.DomainLow, &m.DomainHigh, &m.RangeLow, &m.RangeHigh, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}

// Delete removes a mapping by name.
func (r *MappingRepository) Delete(name string) error {
	result, err := r.db.Exec(`DELETE FROM mappings WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return mustAffect(result)
}
