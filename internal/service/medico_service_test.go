package service

import (
	"context"
	"testing"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedico_CrearObtenerListar(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())

	m, err := env.medicos.Crear(ctx, dto.CrearMedicoRequest{Nombre: "Dr. Bravo", Especialidad: "Pediatria", ComisionPct: d("12.5")})
	require.NoError(t, err)
	assert.True(t, m.Activo)

	got, err := env.medicos.Obtener(ctx, uuid.MustParse(m.ID))
	require.NoError(t, err)
	assert.Equal(t, "Pediatria", got.Especialidad)
	assert.True(t, d("12.5").Equal(got.ComisionPct))

	_, err = env.medicos.Obtener(ctx, uuid.New())
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	lista, err := env.medicos.Listar(ctx, true)
	require.NoError(t, err)
	assert.Len(t, lista, 1)
}

func TestMedico_PorcentajeFueraDeRango(t *testing.T) {
	env := newTestEnv(testParams())
	for _, pct := range []string{"-1", "100.01"} {
		_, err := env.medicos.Crear(context.Background(), dto.CrearMedicoRequest{Nombre: "Dr. X", ComisionPct: d(pct)})
		assert.ErrorIs(t, err, apierror.NewValidation(nil))
	}
}
