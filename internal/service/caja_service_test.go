package service

import (
	"context"
	"os"
	"testing"
	"time"

	"cajacancha/internal/dto"
	"cajacancha/internal/ledger"
	"cajacancha/internal/model"
	"cajacancha/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory CajaRepository ─────────────────────────────────────────────────

type fakeCajaRepo struct {
	sesiones    map[uuid.UUID]*model.SesionCaja
	movimientos []*model.Movimiento
}

func newFakeCajaRepo() *fakeCajaRepo {
	return &fakeCajaRepo{sesiones: make(map[uuid.UUID]*model.SesionCaja)}
}

var _ repository.CajaRepository = (*fakeCajaRepo)(nil)

func (r *fakeCajaRepo) DB() *gorm.DB { return nil }

func (r *fakeCajaRepo) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	// Same gate the partial unique index provides in storage.
	for _, existing := range r.sesiones {
		if existing.PuntoDeVenta == s.PuntoDeVenta && existing.Estado == model.SesionAbierta {
			return ledger.ErrCajaYaAbierta
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	copia := *s
	r.sesiones[s.ID] = &copia
	return nil
}

func (r *fakeCajaRepo) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	s, ok := r.sesiones[id]
	if !ok {
		return nil, ledger.ErrNoEncontrado
	}
	copia := *s
	return &copia, nil
}

func (r *fakeCajaRepo) FindSesionAbiertaPorPDV(_ context.Context, pdv int) (*model.SesionCaja, error) {
	for _, s := range r.sesiones {
		if s.PuntoDeVenta == pdv && s.Estado == model.SesionAbierta {
			copia := *s
			return &copia, nil
		}
	}
	return nil, nil
}

func (r *fakeCajaRepo) CerrarSesion(_ context.Context, s *model.SesionCaja) error {
	stored, ok := r.sesiones[s.ID]
	if !ok {
		return ledger.ErrNoEncontrado
	}
	// Same guard the storage UPDATE ... WHERE estado='abierta' provides.
	if stored.Estado != model.SesionAbierta {
		return ledger.ErrCajaCerrada
	}
	copia := *s
	r.sesiones[s.ID] = &copia
	return nil
}

func (r *fakeCajaRepo) ListSesionesCerradas(_ context.Context, page, limit int) ([]model.SesionCaja, int64, error) {
	var cerradas []model.SesionCaja
	for _, s := range r.sesiones {
		if s.Estado == model.SesionCerrada {
			cerradas = append(cerradas, *s)
		}
	}
	total := int64(len(cerradas))
	start := (page - 1) * limit
	if start >= len(cerradas) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(cerradas) {
		end = len(cerradas)
	}
	return cerradas[start:end], total, nil
}

func (r *fakeCajaRepo) CreateMovimiento(_ context.Context, m *model.Movimiento) error {
	return r.CreateMovimientoTx(nil, m)
}

func (r *fakeCajaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.Movimiento) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	copia := *m
	r.movimientos = append(r.movimientos, &copia)
	return nil
}

func (r *fakeCajaRepo) FindMovimientoByID(_ context.Context, id uuid.UUID) (*model.Movimiento, error) {
	for _, m := range r.movimientos {
		if m.ID == id {
			copia := *m
			return &copia, nil
		}
	}
	return nil, ledger.ErrNoEncontrado
}

func (r *fakeCajaRepo) ListMovimientos(_ context.Context, sesionID uuid.UUID) ([]model.Movimiento, error) {
	var out []model.Movimiento
	for _, m := range r.movimientos {
		if m.SesionCajaID == sesionID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeCajaRepo) MarcarAnulado(_ context.Context, m *model.Movimiento) error {
	return r.MarcarAnuladoTx(nil, m)
}

func (r *fakeCajaRepo) MarcarAnuladoTx(_ *gorm.DB, m *model.Movimiento) error {
	for _, stored := range r.movimientos {
		if stored.ID == m.ID {
			if stored.Anulado {
				return ledger.ErrYaAnulado
			}
			stored.Anulado = true
			stored.MotivoAnulacion = m.MotivoAnulacion
			stored.AnuladoEn = m.AnuladoEn
			stored.AnuladoPor = m.AnuladoPor
			return nil
		}
	}
	return ledger.ErrYaAnulado
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func abrirSesion(t *testing.T, svc CajaService, pdv int, apertura string) uuid.UUID {
	t.Helper()
	resp, err := svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		PuntoDeVenta:  pdv,
		MontoApertura: decimal.RequireFromString(apertura),
	})
	require.NoError(t, err)
	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	return id
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestAbrirCaja(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")

	resp, err := svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		PuntoDeVenta:  1,
		MontoApertura: decimal.RequireFromString("1000.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.SesionAbierta, resp.Estado)
	assert.Equal(t, 1, resp.PuntoDeVenta)
	assert.True(t, resp.MontoApertura.Equal(decimal.RequireFromString("1000.00")))
	assert.Nil(t, resp.ClosedAt)
}

func TestAbrirCajaAperturaNegativa(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo(), nil, nil, "", "")

	_, err := svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		PuntoDeVenta:  1,
		MontoApertura: decimal.RequireFromString("-50.00"),
	})
	assert.True(t, ledger.EsValidacion(err))
}

func TestAbrirCajaAperturaSubCentavo(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo(), nil, nil, "", "")

	// Las columnas de dinero son decimal(12,2): un monto con fracción de
	// centavo se rechaza antes de llegar al almacenamiento.
	_, err := svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		PuntoDeVenta:  1,
		MontoApertura: decimal.RequireFromString("1000.005"),
	})
	assert.True(t, ledger.EsValidacion(err))
}

func TestCerrarCajaContadoSubCentavo(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")
	sesionID := abrirSesion(t, svc, 1, "100.00")

	_, err := svc.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.RequireFromString("99.999"),
	})
	assert.True(t, ledger.EsValidacion(err))

	// La sesión sigue abierta: el cierre no llegó a escribirse.
	sesion, err := repo.FindSesionByID(context.Background(), sesionID)
	require.NoError(t, err)
	assert.Equal(t, model.SesionAbierta, sesion.Estado)
}

func TestAbrirCajaDobleApertura(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")
	abrirSesion(t, svc, 1, "500.00")

	_, err := svc.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{
		PuntoDeVenta:  1,
		MontoApertura: decimal.Zero,
	})
	assert.ErrorIs(t, err, ledger.ErrCajaYaAbierta)

	// Otro punto de venta abre sin conflicto.
	abrirSesion(t, svc, 2, "300.00")
}

func TestCerrarCaja(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")
	movSvc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, svc, 1, "1000.00")
	usuarioID := uuid.New()

	_, err := movSvc.Registrar(context.Background(), usuarioID, dto.MovimientoRequest{
		SesionCajaID: sesionID.String(),
		Categoria:    model.CategoriaIngreso,
		MetodoPago:   model.MetodoEfectivo,
		Monto:        decimal.RequireFromString("500.00"),
		Concepto:     "alquiler cancha 3",
	})
	require.NoError(t, err)
	_, err = movSvc.Registrar(context.Background(), usuarioID, dto.MovimientoRequest{
		SesionCajaID: sesionID.String(),
		Categoria:    model.CategoriaIngreso,
		MetodoPago:   model.MetodoTransferencia,
		Monto:        decimal.RequireFromString("800.00"),
		Concepto:     "seña torneo relámpago",
	})
	require.NoError(t, err)

	// Contado 1480 contra 1500 esperado: faltante de 20, notable (>1%).
	resp, err := svc.Cerrar(context.Background(), usuarioID, dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.RequireFromString("1480.00"),
	})
	require.NoError(t, err)
	assert.True(t, resp.MontoEsperado.Equal(decimal.RequireFromString("1500.00")), "esperado = %s", resp.MontoEsperado)
	assert.True(t, resp.Diferencia.Equal(decimal.RequireFromString("-20.00")))
	assert.Equal(t, model.DiferenciaNotable, resp.Clasificacion)
	assert.Equal(t, model.SesionCerrada, resp.Estado)

	sesion, err := repo.FindSesionByID(context.Background(), sesionID)
	require.NoError(t, err)
	assert.Equal(t, model.SesionCerrada, sesion.Estado)
	require.NotNil(t, sesion.MontoEsperadoFisico)
	assert.True(t, sesion.MontoEsperadoFisico.Equal(decimal.RequireFromString("1500.00")))
	assert.NotNil(t, sesion.ClosedAt)
}

func TestCerrarCajaYaCerrada(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")
	sesionID := abrirSesion(t, svc, 1, "100.00")

	req := dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.RequireFromString("100.00"),
	}
	_, err := svc.Cerrar(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	_, err = svc.Cerrar(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ledger.ErrCajaCerrada)
}

// fakeCajaRepoLecturaVieja returns every session as still open on reads,
// simulating a close that raced past the service-level state check against a
// stale snapshot. The storage guard is then the only thing stopping it.
type fakeCajaRepoLecturaVieja struct{ *fakeCajaRepo }

func (r *fakeCajaRepoLecturaVieja) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	s, err := r.fakeCajaRepo.FindSesionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Estado = model.SesionAbierta
	return s, nil
}

func TestCerrarCajaConcurrenteNoPisaElCierre(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")
	sesionID := abrirSesion(t, svc, 1, "500.00")

	_, err := svc.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)

	// Segundo cierre con lectura vieja: pasa el chequeo de estado del
	// servicio pero el guard de almacenamiento lo rechaza.
	viejo := NewCajaService(&fakeCajaRepoLecturaVieja{repo}, nil, nil, "", "")
	_, err = viejo.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.RequireFromString("9999.00"),
	})
	assert.ErrorIs(t, err, ledger.ErrCajaCerrada)

	// El snapshot del primer cierre queda intacto.
	sesion, err := repo.FindSesionByID(context.Background(), sesionID)
	require.NoError(t, err)
	require.NotNil(t, sesion.MontoCierreFisico)
	assert.True(t, sesion.MontoCierreFisico.Equal(decimal.RequireFromString("500.00")))
}

func TestCerrarYReabrirMismoPDV(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")
	sesionID := abrirSesion(t, svc, 1, "100.00")

	_, err := svc.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	// Cerrada la anterior, el mismo punto de venta abre un nuevo día.
	abrirSesion(t, svc, 1, "200.00")
}

func TestClasificarDiferencia(t *testing.T) {
	esperado := decimal.RequireFromString("10000.00")

	casos := []struct {
		diferencia string
		want       string
	}{
		{"0.00", model.DiferenciaExacta},
		{"-0.05", model.DiferenciaExacta},
		{"0.05", model.DiferenciaExacta},
		{"-50.00", model.DiferenciaLeve},     // 0.5%
		{"100.00", model.DiferenciaLeve},     // exactamente 1%
		{"-150.00", model.DiferenciaNotable}, // 1.5%
	}
	for _, c := range casos {
		got := clasificarDiferencia(decimal.RequireFromString(c.diferencia), esperado)
		assert.Equal(t, c.want, got, "diferencia %s", c.diferencia)
	}

	// Con esperado cero no hay porcentaje: todo lo que supere la tolerancia
	// absoluta es notable.
	assert.Equal(t, model.DiferenciaNotable, clasificarDiferencia(decimal.RequireFromString("0.50"), decimal.Zero))
}

func TestActivaSinSesion(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo(), nil, nil, "", "")

	resp, err := svc.Activa(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestSesionAbiertaSinSesion(t *testing.T) {
	svc := NewCajaService(newFakeCajaRepo(), nil, nil, "", "")

	_, err := svc.SesionAbierta(context.Background(), 7)
	assert.ErrorIs(t, err, ledger.ErrSinCajaAbierta)
}

func TestHistorialSoloCerradas(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")

	abierta := abrirSesion(t, svc, 1, "100.00")
	_ = abierta
	otra := abrirSesion(t, svc, 2, "200.00")
	_, err := svc.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		SesionCajaID:       otra.String(),
		MontoContadoFisico: decimal.RequireFromString("200.00"),
	})
	require.NoError(t, err)

	hist, err := svc.Historial(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hist.Total)
	require.Len(t, hist.Data, 1)
	assert.Equal(t, model.SesionCerrada, hist.Data[0].Estado)
}

func TestReportePDFSoloSesionCerrada(t *testing.T) {
	repo := newFakeCajaRepo()
	dir := t.TempDir()
	svc := NewCajaService(repo, nil, nil, dir, "Complejo Test")
	sesionID := abrirSesion(t, svc, 1, "500.00")

	// Con la sesión abierta el PDF todavía no existe.
	_, err := svc.ReportePDF(context.Background(), sesionID)
	assert.True(t, ledger.EsValidacion(err))

	_, err = svc.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)

	path, err := svc.ReportePDF(context.Background(), sesionID)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// Una segunda llamada reutiliza el archivo ya generado.
	otra, err := svc.ReportePDF(context.Background(), sesionID)
	require.NoError(t, err)
	assert.Equal(t, path, otra)
}

func TestReporteDerivaBalance(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewCajaService(repo, nil, nil, "", "")
	movSvc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, svc, 1, "1000.00")
	usuarioID := uuid.New()

	mov, err := movSvc.Registrar(context.Background(), usuarioID, dto.MovimientoRequest{
		SesionCajaID: sesionID.String(),
		Categoria:    model.CategoriaEgreso,
		MetodoPago:   model.MetodoEfectivo,
		Monto:        decimal.RequireFromString("200.00"),
		Concepto:     "compra de pelotas",
	})
	require.NoError(t, err)

	reporte, err := svc.Reporte(context.Background(), sesionID)
	require.NoError(t, err)
	assert.True(t, reporte.Balance.Fisico.Equal(decimal.RequireFromString("800.00")))
	require.Len(t, reporte.Movimientos, 1)
	assert.Equal(t, mov.ID, reporte.Movimientos[0].ID)

	// Anulado el movimiento, el balance se recalcula sin él.
	movID, _ := uuid.Parse(mov.ID)
	_, err = movSvc.Anular(context.Background(), usuarioID, movID, dto.AnularMovimientoRequest{
		Motivo: "cargado por error de tipeo",
	})
	require.NoError(t, err)

	reporte, err = svc.Reporte(context.Background(), sesionID)
	require.NoError(t, err)
	assert.True(t, reporte.Balance.Fisico.Equal(decimal.RequireFromString("1000.00")))
}
