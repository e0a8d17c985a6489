package repositories

import "github.com/vsinha/meio/pkg/domain/entities"

// DemandRepository provides access to leaf demand observations
type DemandRepository interface {
	GetDemand() ([]entities.DemandRecord, error)
	LoadDemand(records []entities.DemandRecord) error
}
