package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"clinicapos/internal/efectivo"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store shared by every fake repository ──────────────────────────

type memStore struct {
	mu sync.Mutex

	turnos     map[uuid.UUID]model.Turno
	gastos     []model.Gasto
	vouchers   []model.Voucher
	transfers  []model.Transferencia
	depositos  []model.Deposito
	ventas     map[uuid.UUID]model.Venta
	medicos    map[uuid.UUID]model.Medico
	pagos      map[uuid.UUID]model.PagoComision
	saldos     []model.SaldoInicial
	movs       map[int64]model.MovimientoBanco
	nextMov    int64
	usuarios   map[uuid.UUID]model.Usuario
	ledgerLock int
}

func newMemStore() *memStore {
	return &memStore{
		turnos:   map[uuid.UUID]model.Turno{},
		ventas:   map[uuid.UUID]model.Venta{},
		medicos:  map[uuid.UUID]model.Medico{},
		pagos:    map[uuid.UUID]model.PagoComision{},
		movs:     map[int64]model.MovimientoBanco{},
		usuarios: map[uuid.UUID]model.Usuario{},
	}
}

func copyVenta(v model.Venta) model.Venta {
	v.Items = append([]model.VentaItem(nil), v.Items...)
	v.Pagos = append([]model.VentaPago(nil), v.Pagos...)
	return v
}

// ── Turnos ────────────────────────────────────────────────────────────────────

type fakeTurnoRepo struct{ *memStore }

func (r fakeTurnoRepo) DB() *gorm.DB { return nil }

func (r fakeTurnoRepo) CreateTurno(_ context.Context, _ *gorm.DB, t *model.Turno) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.turnos {
		if x.Estado == model.TurnoAbierto && t.Estado == model.TurnoAbierto {
			return gorm.ErrDuplicatedKey
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.turnos[t.ID] = *t
	return nil
}

func (r fakeTurnoRepo) FindTurnoAbierto(_ context.Context, _ *gorm.DB, _ string) (*model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.turnos {
		if t.Estado == model.TurnoAbierto {
			cp := t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeTurnoRepo) FindTurnoByID(_ context.Context, _ *gorm.DB, id uuid.UUID, _ string) (*model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turnos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r fakeTurnoRepo) UpdateTurno(_ context.Context, _ *gorm.DB, t *model.Turno) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turnos[t.ID] = *t
	return nil
}

func (r fakeTurnoRepo) ListTurnos(_ context.Context, q repository.TurnoQuery) ([]model.Turno, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Turno
	for _, t := range r.turnos {
		if q.Estado == "" || t.Estado == q.Estado {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, int64(len(out)), nil
}

func (r fakeTurnoRepo) CreateGasto(_ context.Context, _ *gorm.DB, g *model.Gasto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.ID = uuid.New()
	r.gastos = append(r.gastos, *g)
	return nil
}

func (r fakeTurnoRepo) CreateVoucher(_ context.Context, _ *gorm.DB, v *model.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = uuid.New()
	r.vouchers = append(r.vouchers, *v)
	return nil
}

func (r fakeTurnoRepo) CreateTransferencia(_ context.Context, _ *gorm.DB, t *model.Transferencia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	r.transfers = append(r.transfers, *t)
	return nil
}

func (r fakeTurnoRepo) CreateDeposito(_ context.Context, _ *gorm.DB, d *model.Deposito) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.New()
	r.depositos = append(r.depositos, *d)
	return nil
}

func (r fakeTurnoRepo) Totales(_ context.Context, _ *gorm.DB, turnoID uuid.UUID) (*repository.TotalesTurno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := &repository.TotalesTurno{}
	for _, v := range r.ventas {
		if v.TurnoID != turnoID || v.Estado != model.VentaCompletada {
			continue
		}
		for _, p := range v.Pagos {
			switch p.Metodo {
			case model.CanalEfectivo:
				out.VentasEfectivo = out.VentasEfectivo.Add(p.Monto)
			case model.CanalTarjeta:
				out.VentasTarjeta = out.VentasTarjeta.Add(p.Monto)
			case model.CanalTransferencia:
				out.VentasTransferencia = out.VentasTransferencia.Add(p.Monto)
			case model.CanalDeposito:
				out.VentasDeposito = out.VentasDeposito.Add(p.Monto)
			}
		}
	}
	for _, g := range r.gastos {
		if g.TurnoID != turnoID {
			continue
		}
		out.TotalGastos = out.TotalGastos.Add(g.Monto)
		if g.MetodoPago == model.CanalEfectivo {
			out.GastosEfectivo = out.GastosEfectivo.Add(g.Monto)
		}
	}
	for _, v := range r.vouchers {
		if v.TurnoID == turnoID {
			out.TotalVouchers = out.TotalVouchers.Add(v.Monto)
		}
	}
	for _, t := range r.transfers {
		if t.TurnoID == turnoID {
			out.TotalTransferencias = out.TotalTransferencias.Add(t.Monto)
		}
	}
	for _, d := range r.depositos {
		if d.TurnoID == turnoID {
			out.TotalDepositos = out.TotalDepositos.Add(d.Monto)
		}
	}
	for _, p := range r.pagos {
		if p.TurnoID != nil && *p.TurnoID == turnoID && p.Activo() {
			out.ComisionesEfectivo = out.ComisionesEfectivo.Add(p.Total)
		}
	}
	return out, nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

type fakeVentaRepo struct{ *memStore }

func (r fakeVentaRepo) DB() *gorm.DB { return nil }

func (r fakeVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	for i := range v.Items {
		v.Items[i].ID = uuid.New()
		v.Items[i].VentaID = v.ID
	}
	for i := range v.Pagos {
		v.Pagos[i].ID = uuid.New()
		v.Pagos[i].VentaID = v.ID
	}
	r.ventas[v.ID] = copyVenta(*v)
	return nil
}

func (r fakeVentaRepo) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID, _ string) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := copyVenta(v)
	return &cp, nil
}

func (r fakeVentaRepo) Anular(_ context.Context, _ *gorm.DB, id uuid.UUID, motivo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := copyVenta(r.ventas[id])
	v.Estado = model.VentaAnulada
	v.MotivoAnulacion = &motivo
	for i := range v.Items {
		if v.Items[i].EstadoComision == model.ComisionPendiente {
			v.Items[i].EstadoComision = model.ComisionAnulada
		}
	}
	r.ventas[id] = v
	return nil
}

func (r fakeVentaRepo) List(_ context.Context, q repository.VentaQuery) ([]model.Venta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if q.Estado != "" && q.Estado != "all" && v.Estado != q.Estado {
			continue
		}
		if q.Desde != nil && v.Fecha.Before(*q.Desde) {
			continue
		}
		if q.Hasta != nil && v.Fecha.After(*q.Hasta) {
			continue
		}
		if q.TurnoID != nil && v.TurnoID != *q.TurnoID {
			continue
		}
		out = append(out, copyVenta(v))
	}
	return out, int64(len(out)), nil
}

// ── Medicos ───────────────────────────────────────────────────────────────────

type fakeMedicoRepo struct{ *memStore }

func (r fakeMedicoRepo) Create(_ context.Context, m *model.Medico) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.medicos[m.ID] = *m
	return nil
}

func (r fakeMedicoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Medico, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.medicos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r fakeMedicoRepo) List(_ context.Context, soloActivos bool) ([]model.Medico, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Medico
	for _, m := range r.medicos {
		if !soloActivos || m.Activo {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

// ── Comisiones ────────────────────────────────────────────────────────────────

type fakeComisionRepo struct {
	*memStore
	// robarUno simulates a concurrent settlement taking one line between
	// selection and the guarded update.
	robarUno bool
}

func (r *fakeComisionRepo) DB() *gorm.DB { return nil }

func (r *fakeComisionRepo) LockMedico(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Medico, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.medicos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r *fakeComisionRepo) ListItemsPendientes(_ context.Context, _ *gorm.DB, medicoID uuid.UUID, desde, hasta model.Fecha) ([]repository.ItemComision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.ItemComision
	for _, v := range r.ventas {
		if v.Estado != model.VentaCompletada || v.Fecha.Before(desde) || v.Fecha.After(hasta) {
			continue
		}
		for _, it := range v.Items {
			if it.MedicoID != nil && *it.MedicoID == medicoID &&
				it.EstadoComision == model.ComisionPendiente && it.PagoComisionID == nil {
				out = append(out, repository.ItemComision{VentaItem: it, FechaVenta: v.Fecha})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].FechaVenta.Compare(out[j].FechaVenta); c != 0 {
			return c < 0
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *fakeComisionRepo) ListPagosActivosTraslapados(_ context.Context, _ *gorm.DB, medicoID uuid.UUID, desde, hasta model.Fecha) ([]model.PagoComision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PagoComision
	for _, p := range r.pagos {
		if p.MedicoID == medicoID && p.Activo() && !p.PeriodoInicio.After(hasta) && !p.PeriodoFin.Before(desde) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}

func (r *fakeComisionRepo) CreatePago(_ context.Context, _ *gorm.DB, p *model.PagoComision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	r.pagos[p.ID] = *p
	return nil
}

func (r *fakeComisionRepo) MarcarItemsLiquidados(_ context.Context, _ *gorm.DB, pagoID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[uuid.UUID]bool{}
	for _, id := range itemIDs {
		ids[id] = true
	}
	var n int64
	for vid, v := range r.ventas {
		v = copyVenta(v)
		for i := range v.Items {
			it := &v.Items[i]
			if !ids[it.ID] || it.EstadoComision != model.ComisionPendiente || it.PagoComisionID != nil {
				continue
			}
			if r.robarUno {
				r.robarUno = false
				continue
			}
			it.EstadoComision = model.ComisionLiquidada
			it.PagoComisionID = &pagoID
			n++
		}
		r.ventas[vid] = v
	}
	return n, nil
}

func (r *fakeComisionRepo) FindPago(_ context.Context, _ *gorm.DB, id uuid.UUID, _ string) (*model.PagoComision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pagos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakeComisionRepo) UpdatePago(_ context.Context, _ *gorm.DB, p *model.PagoComision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pagos[p.ID] = *p
	return nil
}

func (r *fakeComisionRepo) LiberarItems(_ context.Context, _ *gorm.DB, pagoID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for vid, v := range r.ventas {
		v = copyVenta(v)
		for i := range v.Items {
			it := &v.Items[i]
			if it.PagoComisionID != nil && *it.PagoComisionID == pagoID && it.EstadoComision == model.ComisionLiquidada {
				it.EstadoComision = model.ComisionPendiente
				it.PagoComisionID = nil
				n++
			}
		}
		r.ventas[vid] = v
	}
	return n, nil
}

func (r *fakeComisionRepo) ListPagos(_ context.Context, medicoID *uuid.UUID) ([]model.PagoComision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PagoComision
	for _, p := range r.pagos {
		if medicoID == nil || p.MedicoID == *medicoID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

func (r *fakeComisionRepo) PendientesPorMedico(_ context.Context) ([]repository.PendienteMedico, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := map[uuid.UUID]*repository.PendienteMedico{}
	for _, v := range r.ventas {
		if v.Estado != model.VentaCompletada {
			continue
		}
		for _, it := range v.Items {
			if it.MedicoID == nil || it.EstadoComision != model.ComisionPendiente {
				continue
			}
			p, ok := acc[*it.MedicoID]
			if !ok {
				p = &repository.PendienteMedico{MedicoID: *it.MedicoID, Nombre: r.medicos[*it.MedicoID].Nombre}
				acc[*it.MedicoID] = p
			}
			p.Items++
			p.Total = p.Total.Add(it.ComisionMonto)
		}
	}
	out := make([]repository.PendienteMedico, 0, len(acc))
	for _, p := range acc {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

// ── Banco ─────────────────────────────────────────────────────────────────────

type fakeBancoRepo struct{ *memStore }

func (r fakeBancoRepo) DB() *gorm.DB { return nil }

func (r fakeBancoRepo) LockLedger(_ context.Context, _ *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgerLock++
	return nil
}

func (r fakeBancoRepo) FindSaldoInicialActivo(_ context.Context, _ *gorm.DB) (*model.SaldoInicial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.saldos {
		if s.Activo {
			cp := s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeBancoRepo) DesactivarSaldosIniciales(_ context.Context, _ *gorm.DB, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.saldos {
		if r.saldos[i].Activo {
			r.saldos[i].Activo = false
			t := at
			r.saldos[i].DesactivadoAt = &t
		}
	}
	return nil
}

func (r fakeBancoRepo) CreateSaldoInicial(_ context.Context, _ *gorm.DB, s *model.SaldoInicial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	r.saldos = append(r.saldos, *s)
	return nil
}

func (r fakeBancoRepo) ListSaldosIniciales(_ context.Context) ([]model.SaldoInicial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SaldoInicial(nil), r.saldos...), nil
}

func (r fakeBancoRepo) Create(_ context.Context, _ *gorm.DB, m *model.MovimientoBanco) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ClaveOrigen != nil {
		for _, x := range r.movs {
			if x.ClaveOrigen != nil && *x.ClaveOrigen == *m.ClaveOrigen {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	r.nextMov++
	m.ID = r.nextMov
	r.movs[m.ID] = *m
	return nil
}

func (r fakeBancoRepo) FindByID(_ context.Context, _ *gorm.DB, id int64) (*model.MovimientoBanco, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.movs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r fakeBancoRepo) FindByClaveOrigen(_ context.Context, _ *gorm.DB, clave string) (*model.MovimientoBanco, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movs {
		if m.ClaveOrigen != nil && *m.ClaveOrigen == clave {
			cp := m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeBancoRepo) Update(_ context.Context, _ *gorm.DB, m *model.MovimientoBanco) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movs[m.ID] = *m
	return nil
}

func (r fakeBancoRepo) Delete(_ context.Context, _ *gorm.DB, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.movs, id)
	return nil
}

func (r fakeBancoRepo) ordenados() []model.MovimientoBanco {
	out := make([]model.MovimientoBanco, 0, len(r.movs))
	for _, m := range r.movs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Fecha.Compare(out[j].Fecha); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r fakeBancoRepo) ListOrdenados(_ context.Context, _ *gorm.DB) ([]model.MovimientoBanco, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ordenados(), nil
}

func (r fakeBancoRepo) UpdateSaldos(_ context.Context, _ *gorm.DB, saldos map[int64]decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range saldos {
		m := r.movs[id]
		m.SaldoCorrido = s
		r.movs[id] = m
	}
	return nil
}

func (r fakeBancoRepo) ListByRango(_ context.Context, desde, hasta model.Fecha) ([]model.MovimientoBanco, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoBanco
	for _, m := range r.ordenados() {
		if !m.Fecha.Before(desde) && !m.Fecha.After(hasta) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fakeBancoRepo) ListByClasificacion(_ context.Context, clasificacion string) ([]model.MovimientoBanco, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoBanco
	for _, m := range r.ordenados() {
		if m.Clasificacion == clasificacion {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fakeBancoRepo) Ultimo(_ context.Context) (*model.MovimientoBanco, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.ordenados()
	if len(all) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &all[len(all)-1], nil
}

func (r fakeBancoRepo) TotalesPorClasificacion(_ context.Context, desde, hasta model.Fecha) ([]repository.TotalClasificacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := map[string]*repository.TotalClasificacion{}
	for _, m := range r.movs {
		if m.Fecha.Before(desde) || m.Fecha.After(hasta) {
			continue
		}
		t, ok := acc[m.Clasificacion]
		if !ok {
			t = &repository.TotalClasificacion{Clasificacion: m.Clasificacion}
			acc[m.Clasificacion] = t
		}
		t.Ingreso = t.Ingreso.Add(m.Ingreso)
		t.Egreso = t.Egreso.Add(m.Egreso)
	}
	out := make([]repository.TotalClasificacion, 0, len(acc))
	for _, t := range acc {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clasificacion < out[j].Clasificacion })
	return out, nil
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

type fakeUsuarioRepo struct{ *memStore }

func (r fakeUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.usuarios {
		if x.Username == u.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = uuid.New()
	r.usuarios[u.ID] = *u
	return nil
}

func (r fakeUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usuarios {
		if u.Username == username && u.Activo {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r fakeUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Usuario
	for _, u := range r.usuarios {
		if u.Activo {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r fakeUsuarioRepo) Restablecer(_ context.Context, u *model.Usuario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, x := range r.usuarios {
		if x.Username == u.Username {
			x.PasswordHash, x.Rol, x.Nombre, x.Activo = u.PasswordHash, u.Rol, u.Nombre, true
			r.usuarios[id] = x
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Notificador ───────────────────────────────────────────────────────────────

type fakeNotificador struct {
	mu      sync.Mutex
	asuntos []string
}

func (n *fakeNotificador) Notificar(_ context.Context, asunto, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.asuntos = append(n.asuntos, asunto)
	return nil
}

func (n *fakeNotificador) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.asuntos)
}

// ── Wiring ────────────────────────────────────────────────────────────────────

type testEnv struct {
	store    *memStore
	comRepo  *fakeComisionRepo
	notif    *fakeNotificador
	banco    BancoService
	turnos   TurnoService
	ventas   VentaService
	comision ComisionService
	medicos  MedicoService
	reportes ReporteService
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func efectivoContador() *efectivo.Contador {
	return efectivo.MustContador(efectivo.DefaultBilletes, efectivo.DefaultMonedas)
}

func testParams() ParametrosCuadre {
	return ParametrosCuadre{
		Tolerancia: d("0.01"),
		Tasas: TasasImpuesto{
			Efectivo:      d("0.16"),
			Tarjeta:       d("0.21"),
			Transferencia: d("0.16"),
			Deposito:      d("0.16"),
		},
	}
}

func newTestEnv(params ParametrosCuadre) *testEnv {
	st := newMemStore()
	env := &testEnv{store: st, comRepo: &fakeComisionRepo{memStore: st}, notif: &fakeNotificador{}}
	env.banco = NewBancoService(fakeBancoRepo{st}, nil)
	env.turnos = NewTurnoService(fakeTurnoRepo{st}, env.banco, efectivoContador(), params, env.notif, nil)
	env.ventas = NewVentaService(fakeVentaRepo{st}, fakeTurnoRepo{st}, fakeMedicoRepo{st}, env.banco)
	env.comision = NewComisionService(env.comRepo, fakeTurnoRepo{st}, env.banco, env.notif, nil)
	env.medicos = NewMedicoService(fakeMedicoRepo{st})
	env.reportes = NewReporteService(env.turnos, env.banco, fakeBancoRepo{st}, env.comRepo)
	return env
}
