package service

import (
	"context"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type MedicoService interface {
	Crear(ctx context.Context, req dto.CrearMedicoRequest) (*dto.MedicoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.MedicoResponse, error)
	Listar(ctx context.Context, soloActivos bool) ([]dto.MedicoResponse, error)
}

type medicoService struct {
	repo repository.MedicoRepository
}

func NewMedicoService(repo repository.MedicoRepository) MedicoService {
	return &medicoService{repo: repo}
}

func (s *medicoService) Crear(ctx context.Context, req dto.CrearMedicoRequest) (*dto.MedicoResponse, error) {
	if req.ComisionPct.IsNegative() || req.ComisionPct.GreaterThan(cien) {
		return nil, apierror.NewValidation(map[string]string{"comision_pct": "0..100"})
	}
	m := &model.Medico{
		Nombre:       req.Nombre,
		Especialidad: req.Especialidad,
		ComisionPct:  req.ComisionPct,
		Activo:       true,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	log.Info().Str("medico_id", m.ID.String()).Str("comision_pct", m.ComisionPct.String()).Msg("medico creado")
	resp := medicoToResponse(m)
	return &resp, nil
}

func (s *medicoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.MedicoResponse, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "medico_id", id.String())
	}
	resp := medicoToResponse(m)
	return &resp, nil
}

func (s *medicoService) Listar(ctx context.Context, soloActivos bool) ([]dto.MedicoResponse, error) {
	medicos, err := s.repo.List(ctx, soloActivos)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MedicoResponse, 0, len(medicos))
	for i := range medicos {
		out = append(out, medicoToResponse(&medicos[i]))
	}
	return out, nil
}

func medicoToResponse(m *model.Medico) dto.MedicoResponse {
	return dto.MedicoResponse{
		ID:           m.ID.String(),
		Nombre:       m.Nombre,
		Especialidad: m.Especialidad,
		ComisionPct:  m.ComisionPct,
		Activo:       m.Activo,
	}
}
