package repository

import (
	"context"

	"clinicapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicoRepository interface {
	Create(ctx context.Context, m *model.Medico) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Medico, error)
	List(ctx context.Context, soloActivos bool) ([]model.Medico, error)
}

type medicoRepo struct{ db *gorm.DB }

func NewMedicoRepository(db *gorm.DB) MedicoRepository { return &medicoRepo{db: db} }

func (r *medicoRepo) Create(ctx context.Context, m *model.Medico) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *medicoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Medico, error) {
	var m model.Medico
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *medicoRepo) List(ctx context.Context, soloActivos bool) ([]model.Medico, error) {
	var out []model.Medico
	db := r.db.WithContext(ctx)
	if soloActivos {
		db = db.Where("activo = true")
	}
	err := db.Order("nombre ASC").Find(&out).Error
	return out, err
}
