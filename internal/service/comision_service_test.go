package service

import (
	"context"
	"testing"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/efectivo"
	"clinicapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// venderConMedico records a sale dated on day with one commissioned line.
func venderConMedico(t *testing.T, env *testEnv, medico uuid.UUID, day int, concepto, precio string) {
	t.Helper()
	f := fecha(day)
	_, err := env.ventas.RegistrarVenta(context.Background(), cajero.ID, dto.RegistrarVentaRequest{
		Fecha: &f,
		Items: []dto.ItemVentaRequest{{Concepto: concepto, Tipo: "servicio", Cantidad: 1, PrecioUnitario: d(precio), MedicoID: strp(medico.String())}},
		Pagos: []dto.PagoRequest{{Metodo: model.CanalEfectivo, Monto: d(precio)}},
	})
	require.NoError(t, err)
}

func TestComision_AgruparPeriodo(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")

	venderConMedico(t, env, medico, 1, "Consulta", "100")
	venderConMedico(t, env, medico, 1, "Consulta", "200")
	venderConMedico(t, env, medico, 2, "Ultrasonido", "500")
	venderConMedico(t, env, medico, 9, "Consulta", "100")

	agr, err := env.comision.AgruparPeriodo(ctx, medico, fecha(1), fecha(5))
	require.NoError(t, err)
	assert.Len(t, agr.Items, 3)
	require.Len(t, agr.Grupos, 2)
	assert.Equal(t, fecha(1), agr.Grupos[0].Fecha)
	assert.Equal(t, 2, agr.Grupos[0].Lineas)
	assert.True(t, d("30").Equal(agr.Grupos[0].Total))
	assert.Equal(t, "Ultrasonido", agr.Grupos[1].Concepto)
	assert.True(t, d("80").Equal(agr.Total))
	assert.Empty(t, agr.Advertencia)

	_, err = env.comision.AgruparPeriodo(ctx, medico, fecha(5), fecha(1))
	assert.ErrorIs(t, err, apierror.ErrInvalidDateRange)
	_, err = env.comision.AgruparPeriodo(ctx, medico, model.Fecha{}, fecha(1))
	assert.ErrorIs(t, err, apierror.ErrInvalidDateRange)
}

func TestComision_LiquidarYReflejarEnBanco(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")
	venderConMedico(t, env, medico, 1, "Consulta", "100")
	venderConMedico(t, env, medico, 3, "Consulta", "250")

	pago, err := env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(31), Nota: "marzo"})
	require.NoError(t, err)
	assert.True(t, d("35").Equal(pago.Total))
	assert.Equal(t, 2, pago.Items)
	assert.False(t, pago.Override)
	assert.Nil(t, pago.TurnoID)
	assert.Equal(t, 1, env.notif.count())

	m, err := fakeBancoRepo{env.store}.FindByClaveOrigen(ctx, nil, claveComision(uuid.MustParse(pago.ID)))
	require.NoError(t, err)
	assert.Equal(t, model.ClasificacionComisiones, m.Clasificacion)
	assert.True(t, d("35").Equal(m.Egreso))

	agr, err := env.comision.AgruparPeriodo(ctx, medico, fecha(1), fecha(31))
	require.NoError(t, err)
	assert.Empty(t, agr.Items)
	assert.Len(t, agr.PagosTraslapados, 1)
	assert.NotEmpty(t, agr.Advertencia)
}

func TestComision_VentanaDuplicadaYOverride(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")
	venderConMedico(t, env, medico, 1, "Consulta", "100")

	primero, err := env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(10)})
	require.NoError(t, err)

	venderConMedico(t, env, medico, 5, "Consulta", "300")
	req := dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(5), Hasta: fecha(15)}

	_, err = env.comision.Liquidar(ctx, cajero, req)
	require.ErrorIs(t, err, apierror.ErrDuplicateSettlement)
	appErr, _ := apierror.As(err)
	assert.Equal(t, primero.ID, appErr.Details["pago_id"])

	req.Override = true
	_, err = env.comision.Liquidar(ctx, cajero, req)
	assert.ErrorIs(t, err, apierror.ErrForbidden)

	segundo, err := env.comision.Liquidar(ctx, supervisor, req)
	require.NoError(t, err)
	assert.True(t, segundo.Override)
	assert.True(t, d("30").Equal(segundo.Total))

	// Lines already paid are never paid twice, even under override.
	_, err = env.comision.Liquidar(ctx, supervisor, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(31), Override: true})
	assert.ErrorIs(t, err, apierror.ErrNothingToSettle)
}

func TestComision_AnularLiberaLineas(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")
	venderConMedico(t, env, medico, 2, "Consulta", "100")

	pago, err := env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(3)})
	require.NoError(t, err)
	pagoID := uuid.MustParse(pago.ID)
	saldoAntes, _, err := env.banco.Saldo(ctx)
	require.NoError(t, err)

	for _, vacio := range []string{"", "   "} {
		_, err = env.comision.Anular(ctx, supervisor, pagoID, vacio)
		assert.ErrorIs(t, err, apierror.NewValidation(nil))
	}

	anulado, err := env.comision.Anular(ctx, supervisor, pagoID, " ok ")
	require.NoError(t, err)
	require.NotNil(t, anulado.VoidedAt)
	assert.Equal(t, "ok", *anulado.VoidReason)

	saldoDespues, _, err := env.banco.Saldo(ctx)
	require.NoError(t, err)
	assert.True(t, saldoAntes.Add(d("10")).Equal(saldoDespues))

	agr, err := env.comision.AgruparPeriodo(ctx, medico, fecha(1), fecha(3))
	require.NoError(t, err)
	assert.Len(t, agr.Items, 1)
	assert.Empty(t, agr.PagosTraslapados)

	_, err = env.comision.Anular(ctx, supervisor, pagoID, "otra vez")
	assert.ErrorIs(t, err, apierror.ErrAlreadyVoided)
	_, err = env.comision.Anular(ctx, supervisor, uuid.New(), "no existe")
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	// The same window can be settled again without override.
	_, err = env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(3)})
	require.NoError(t, err)

	pagos, err := env.comision.ListarPagos(ctx, &medico)
	require.NoError(t, err)
	assert.Len(t, pagos, 2)
}

func TestComision_LiquidacionConcurrenteDetectada(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")
	venderConMedico(t, env, medico, 1, "Consulta", "100")
	venderConMedico(t, env, medico, 1, "Consulta", "100")

	env.comRepo.robarUno = true
	_, err := env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(1)})
	assert.ErrorIs(t, err, apierror.ErrConcurrentSettlement)
}

func TestComision_SinLineasOMedicoInexistente(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")

	_, err := env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(2)})
	assert.ErrorIs(t, err, apierror.ErrNothingToSettle)

	_, err = env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: uuid.NewString(), Desde: fecha(1), Hasta: fecha(2)})
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	_, err = env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(3), Hasta: fecha(2)})
	assert.ErrorIs(t, err, apierror.ErrInvalidDateRange)
}

func TestComision_PagoDesdeCaja(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	turno := abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")
	venderConMedico(t, env, medico, 1, "Consulta", "100")

	pago, err := env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(1), DesdeCaja: true})
	require.NoError(t, err)
	require.NotNil(t, pago.TurnoID)
	assert.Equal(t, turno.ID, *pago.TurnoID)

	c, err := env.turnos.CuadreEnVivo(ctx)
	require.NoError(t, err)
	assert.True(t, d("10").Equal(c.ComisionesEfectivo))
	assert.True(t, d("590").Equal(c.EfectivoEsperado))

	_, err = env.turnos.Cerrar(ctx, cajero, nil, dto.CerrarTurnoRequest{
		Desglose: efectivo.Desglose{Billetes: efectivo.Conteo{"200": 2, "100": 1, "50": 1, "20": 2}},
	})
	require.NoError(t, err)

	_, err = env.comision.Anular(ctx, supervisor, uuid.MustParse(pago.ID), "turno ya cerrado")
	assert.ErrorIs(t, err, apierror.ErrShiftClosed)
}

func TestComision_PagoDesdeCajaSinTurno(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	medico := crearMedico(t, env, "10")
	venderConMedico(t, env, medico, 1, "Consulta", "100")
	_, err := env.turnos.Cerrar(ctx, cajero, nil, dto.CerrarTurnoRequest{
		Desglose: efectivo.Desglose{Billetes: efectivo.Conteo{"200": 3}},
	})
	require.NoError(t, err)

	_, err = env.comision.Liquidar(ctx, cajero, dto.LiquidarRequest{MedicoID: medico.String(), Desde: fecha(1), Hasta: fecha(1), DesdeCaja: true})
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)
}

func TestAgrupar_SinLineas(t *testing.T) {
	grupos, total := agrupar(nil)
	assert.Empty(t, grupos)
	assert.True(t, decimal.Zero.Equal(total))
}
