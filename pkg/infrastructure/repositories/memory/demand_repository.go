package memory

import (
	"github.com/vsinha/meio/pkg/domain/entities"
	"github.com/vsinha/meio/pkg/domain/repositories"
)

// DemandRepository provides in-memory demand storage
type DemandRepository struct {
	records []entities.DemandRecord
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{
		records: []entities.DemandRecord{},
	}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// LoadDemand appends demand records to the repository
func (r *DemandRepository) LoadDemand(records []entities.DemandRecord) error {
	r.records = append(r.records, records...)
	return nil
}

// GetDemand returns a copy of every demand record
func (r *DemandRepository) GetDemand() ([]entities.DemandRecord, error) {
	records := make([]entities.DemandRecord, len(r.records))
	copy(records, r.records)
	return records, nil
}
