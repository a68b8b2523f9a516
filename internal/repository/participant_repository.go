package repository

import (
	"context"

	"github.com/mlmcommerce/supplychain/internal/model"
	"gorm.io/gorm"
)

type ParticipantRepository interface {
	FindByID(ctx context.Context, id string) (*model.Participant, error)
	// FindMany returns the participants that exist among ids, in no particular order.
	FindMany(ctx context.Context, ids []string) ([]model.Participant, error)
}

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) FindByID(ctx context.Context, id string) (*model.Participant, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Participant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

func (r *participantRepository) FindMany(ctx context.Context, ids []string) ([]model.Participant, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Participant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
