package service

import (
	"context"
	"sync"
	"testing"

	"clinicapos/internal/apierror"
	"clinicapos/internal/dto"
	"clinicapos/internal/efectivo"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cajero     = Actor{ID: uuid.New(), Rol: model.RolCajero}
	supervisor = Actor{ID: uuid.New(), Rol: model.RolSupervisor}
)

func billetes(c efectivo.Conteo) efectivo.Desglose { return efectivo.Desglose{Billetes: c} }

// abrirConBanco registers an initial bank balance and opens a shift with 500.
func abrirConBanco(t *testing.T, env *testEnv) *dto.TurnoResponse {
	t.Helper()
	ctx := context.Background()
	_, err := env.banco.RegistrarSaldoInicial(ctx, supervisor.ID, d("10000"))
	require.NoError(t, err)
	turno, err := env.turnos.Abrir(ctx, cajero.ID, dto.AbrirTurnoRequest{
		Desglose: billetes(efectivo.Conteo{"200": 2, "100": 1}),
	})
	require.NoError(t, err)
	return turno
}

func ventaSimple(metodo string, monto string) dto.RegistrarVentaRequest {
	return dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{Concepto: "Consulta", Tipo: "servicio", Cantidad: 1, PrecioUnitario: d(monto)}},
		Pagos: []dto.PagoRequest{{Metodo: metodo, Monto: d(monto)}},
	}
}

func TestTurno_AbrirCalculaMontoApertura(t *testing.T) {
	env := newTestEnv(testParams())
	turno := abrirConBanco(t, env)
	assert.True(t, d("500").Equal(turno.MontoApertura))
	assert.Equal(t, model.TurnoAbierto, turno.Estado)
}

func TestTurno_AbrirDesgloseInvalido(t *testing.T) {
	env := newTestEnv(testParams())
	_, err := env.turnos.Abrir(context.Background(), cajero.ID, dto.AbrirTurnoRequest{
		Desglose: billetes(efectivo.Conteo{"3": 1}),
	})
	assert.ErrorIs(t, err, apierror.ErrInvalidBreakdown)

	_, err = env.turnos.Abrir(context.Background(), cajero.ID, dto.AbrirTurnoRequest{
		Desglose: billetes(efectivo.Conteo{"100": -1}),
	})
	assert.ErrorIs(t, err, apierror.ErrInvalidBreakdown)
	assert.Empty(t, env.store.turnos)
}

func TestTurno_AperturaConcurrenteSoloUnaGana(t *testing.T) {
	env := newTestEnv(testParams())
	const n = 20

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rechazos []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.turnos.Abrir(context.Background(), uuid.New(), dto.AbrirTurnoRequest{
				Desglose: billetes(efectivo.Conteo{"100": 1}),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else {
				rechazos = append(rechazos, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	require.Len(t, rechazos, n-1)
	abierto, err := env.turnos.Activo(context.Background())
	require.NoError(t, err)
	for _, err := range rechazos {
		require.ErrorIs(t, err, apierror.ErrShiftAlreadyOpen)
		appErr, _ := apierror.As(err)
		assert.Equal(t, abierto.ID, appErr.Details["turno_id"])
	}
}

func TestCalcularCuadre_Tolerancia(t *testing.T) {
	turno := &model.Turno{ID: uuid.New(), MontoApertura: d("500")}
	tot := &repository.TotalesTurno{}

	dentro := d("500.01")
	c := calcularCuadre(turno, tot, &dentro, testParams())
	assert.True(t, d("0.01").Equal(*c.DescuadreEfectivo))
	assert.False(t, c.RequiereAutorizacion)

	fuera := d("500.02")
	c = calcularCuadre(turno, tot, &fuera, testParams())
	assert.True(t, c.RequiereAutorizacion)

	faltante := d("499.98")
	c = calcularCuadre(turno, tot, &faltante, testParams())
	assert.True(t, d("-0.02").Equal(*c.DescuadreEfectivo))
	assert.True(t, c.RequiereAutorizacion)
}

func TestCalcularCuadre_ImpuestosRedondeados(t *testing.T) {
	turno := &model.Turno{ID: uuid.New(), MontoApertura: d("0")}
	tot := &repository.TotalesTurno{
		VentasEfectivo:      d("33.33"),
		VentasTarjeta:       d("100"),
		VentasTransferencia: d("10.05"),
		TotalVouchers:       d("100"),
		TotalTransferencias: d("10.05"),
	}
	c := calcularCuadre(turno, tot, nil, testParams())

	assert.Equal(t, "5.33", c.Impuestos.Efectivo.StringFixed(2))
	assert.Equal(t, "21.00", c.Impuestos.Tarjeta.StringFixed(2))
	assert.Equal(t, "1.61", c.Impuestos.Transferencia.StringFixed(2))
	assert.True(t, d("27.94").Equal(c.Impuestos.Total))
	assert.True(t, d("143.38").Equal(c.Ventas.Total))
	assert.Nil(t, c.DescuadreEfectivo)
	assert.False(t, c.RequiereAutorizacion)
}

func TestCalcularCuadre_DescuadreVouchersRequiereAutorizacion(t *testing.T) {
	turno := &model.Turno{ID: uuid.New(), MontoApertura: d("100")}
	tot := &repository.TotalesTurno{VentasTarjeta: d("100"), TotalVouchers: d("90")}
	exacto := d("100")

	c := calcularCuadre(turno, tot, &exacto, testParams())
	assert.True(t, decimal.Zero.Equal(*c.DescuadreEfectivo))
	assert.True(t, d("-10").Equal(c.DescuadreVouchers))
	assert.True(t, c.RequiereAutorizacion)
}

func TestTurno_CierreDeExtremoAExtremo(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	turno := abrirConBanco(t, env)

	_, err := env.ventas.RegistrarVenta(ctx, cajero.ID, ventaSimple(model.CanalEfectivo, "200"))
	require.NoError(t, err)
	_, err = env.turnos.RegistrarGasto(ctx, cajero.ID, dto.GastoRequest{
		Monto: d("50"), Clasificacion: "Papeleria", Descripcion: "hojas",
	})
	require.NoError(t, err)

	cierre := dto.CerrarTurnoRequest{Desglose: billetes(efectivo.Conteo{"200": 3, "50": 1, "10": 1})}

	prev, err := env.turnos.PrevisualizarCierre(ctx, dto.CuadreRequest{Desglose: cierre.Desglose})
	require.NoError(t, err)
	assert.True(t, d("650").Equal(prev.EfectivoEsperado))
	assert.True(t, d("10").Equal(*prev.DescuadreEfectivo))
	assert.True(t, prev.RequiereAutorizacion)

	_, err = env.turnos.Cerrar(ctx, cajero, nil, cierre)
	require.ErrorIs(t, err, apierror.ErrAuthorizationRequired)
	appErr, _ := apierror.As(err)
	assert.Equal(t, "10", appErr.Details["descuadre_efectivo"])

	// Still open after the rejected close.
	_, err = env.turnos.Activo(ctx)
	require.NoError(t, err)

	// A supervisor still needs a note.
	for _, nota := range []string{"", "  "} {
		cierre.Autorizacion = &dto.AutorizacionRequest{Nota: nota}
		_, err = env.turnos.Cerrar(ctx, supervisor, nil, cierre)
		require.ErrorIs(t, err, apierror.ErrAuthorizationRequired)
	}
	_, err = env.turnos.Activo(ctx)
	require.NoError(t, err)

	cierre.Autorizacion = &dto.AutorizacionRequest{Nota: "sobrante por cambio"}
	_, err = env.turnos.Cerrar(ctx, cajero, nil, cierre)
	assert.ErrorIs(t, err, apierror.ErrForbidden)

	cerrado, err := env.turnos.Cerrar(ctx, supervisor, nil, cierre)
	require.NoError(t, err)
	assert.Equal(t, model.TurnoCerrado, cerrado.Estado)
	require.NotNil(t, cerrado.AutorizadoPor)
	assert.Equal(t, supervisor.ID.String(), *cerrado.AutorizadoPor)
	assert.True(t, d("660").Equal(*cerrado.Cuadre.MontoCierre))
	assert.Equal(t, 1, env.notif.count())

	// Stored figures survive a reload.
	recargado, err := env.turnos.Obtener(ctx, uuid.MustParse(turno.ID))
	require.NoError(t, err)
	assert.True(t, d("650").Equal(recargado.Cuadre.EfectivoEsperado))
	assert.True(t, d("10").Equal(*recargado.Cuadre.DescuadreEfectivo))
	assert.True(t, d("200").Equal(recargado.Cuadre.Ventas.Efectivo))
	assert.True(t, d("32").Equal(recargado.Cuadre.Impuestos.Efectivo))

	_, err = env.turnos.Activo(ctx)
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)
}

func TestTurno_CierreExactoSinAutorizacion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)

	cerrado, err := env.turnos.Cerrar(ctx, cajero, nil, dto.CerrarTurnoRequest{
		Desglose: billetes(efectivo.Conteo{"200": 2, "100": 1}),
	})
	require.NoError(t, err)
	assert.Nil(t, cerrado.AutorizadoPor)
	assert.False(t, cerrado.Cuadre.RequiereAutorizacion)
	assert.Zero(t, env.notif.count())
}

func TestTurno_CerrarDosVeces(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	turno := abrirConBanco(t, env)
	id := uuid.MustParse(turno.ID)
	req := dto.CerrarTurnoRequest{Desglose: billetes(efectivo.Conteo{"200": 2, "100": 1})}

	_, err := env.turnos.Cerrar(ctx, cajero, &id, req)
	require.NoError(t, err)

	_, err = env.turnos.Cerrar(ctx, cajero, &id, req)
	assert.ErrorIs(t, err, apierror.ErrShiftClosed)

	_, err = env.turnos.Cerrar(ctx, cajero, nil, req)
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)

	otro := uuid.New()
	_, err = env.turnos.Cerrar(ctx, cajero, &otro, req)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestTurno_AcumulacionesRequierenTurnoAbierto(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())

	_, err := env.turnos.RegistrarGasto(ctx, cajero.ID, dto.GastoRequest{Monto: d("1"), Clasificacion: "x", Descripcion: "xyz"})
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)
	_, err = env.turnos.RegistrarVoucher(ctx, dto.VoucherRequest{Numero: "1", Monto: d("1")})
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)
	_, err = env.turnos.RegistrarTransferencia(ctx, dto.FolioRequest{Folio: "1", Monto: d("1")})
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)
	_, err = env.turnos.RegistrarDeposito(ctx, dto.FolioRequest{Folio: "1", Monto: d("1")})
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)
	_, err = env.ventas.RegistrarVenta(ctx, cajero.ID, ventaSimple(model.CanalEfectivo, "10"))
	assert.ErrorIs(t, err, apierror.ErrNoActiveShift)

	cuadre, err := env.turnos.CuadreEnVivo(ctx)
	require.NoError(t, err)
	assert.Nil(t, cuadre)
}

func TestTurno_VouchersYTransferenciasEnCuadre(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)

	_, err := env.ventas.RegistrarVenta(ctx, cajero.ID, ventaSimple(model.CanalTarjeta, "120"))
	require.NoError(t, err)
	_, err = env.ventas.RegistrarVenta(ctx, cajero.ID, ventaSimple(model.CanalTransferencia, "80"))
	require.NoError(t, err)
	_, err = env.turnos.RegistrarVoucher(ctx, dto.VoucherRequest{Numero: "A1", Monto: d("120")})
	require.NoError(t, err)
	_, err = env.turnos.RegistrarTransferencia(ctx, dto.FolioRequest{Folio: "T1", Monto: d("70")})
	require.NoError(t, err)
	_, err = env.turnos.RegistrarDeposito(ctx, dto.FolioRequest{Folio: "D1", Monto: d("15")})
	require.NoError(t, err)

	c, err := env.turnos.CuadreEnVivo(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, decimal.Zero.Equal(c.DescuadreVouchers))
	assert.True(t, d("-10").Equal(c.DescuadreTransferencias))
	assert.True(t, d("15").Equal(c.TotalDepositos))
	assert.True(t, d("500").Equal(c.EfectivoEsperado))
	assert.True(t, c.RequiereAutorizacion)
}

func TestTurno_GastoNoEfectivoNoSaleDeCaja(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)

	_, err := env.turnos.RegistrarGasto(ctx, cajero.ID, dto.GastoRequest{
		Monto: d("40"), MetodoPago: model.CanalTarjeta, Clasificacion: "Servicios", Descripcion: "internet",
	})
	require.NoError(t, err)

	c, err := env.turnos.CuadreEnVivo(ctx)
	require.NoError(t, err)
	assert.True(t, d("40").Equal(c.TotalGastos))
	assert.True(t, decimal.Zero.Equal(c.GastosEfectivo))
	assert.True(t, d("500").Equal(c.EfectivoEsperado))

	// Every expense is mirrored as a ledger egreso.
	saldo, _, err := env.banco.Saldo(ctx)
	require.NoError(t, err)
	assert.True(t, d("9960").Equal(saldo))
}

func TestTurno_ListarIncluyeCuadreGuardado(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(testParams())
	abrirConBanco(t, env)
	_, err := env.turnos.Cerrar(ctx, cajero, nil, dto.CerrarTurnoRequest{Desglose: billetes(efectivo.Conteo{"200": 2, "100": 1})})
	require.NoError(t, err)

	list, err := env.turnos.Listar(ctx, dto.TurnoFilter{Estado: model.TurnoCerrado, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	require.NotNil(t, list.Data[0].Cuadre)
	assert.True(t, d("500").Equal(list.Data[0].Cuadre.EfectivoEsperado))
}
