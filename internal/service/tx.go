package service

import (
	"context"
	"errors"

	"clinicapos/internal/apierror"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID  uuid.UUID
	Rol string
}

// Notificador delivers operator notices asynchronously. Implementations must
// not block on delivery.
type Notificador interface {
	Notificar(ctx context.Context, asunto, cuerpo string) error
}

// turnoAbiertoTx loads the open shift inside tx, or fails with ErrNoActiveShift.
func turnoAbiertoTx(ctx context.Context, repo repository.TurnoRepository, tx *gorm.DB, lock string) (*model.Turno, error) {
	t, err := repo.FindTurnoAbierto(ctx, tx, lock)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.ErrNoActiveShift
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func notFound(err error, recurso, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.ErrNotFound.WithDetail(recurso, id)
	}
	return err
}

var cien = decimal.NewFromInt(100)

func dec2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func strPtr(s string) *string { return &s }
