package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cajacancha/internal/dto"
	"cajacancha/internal/infra"
	"cajacancha/internal/ledger"
	"cajacancha/internal/model"
	"cajacancha/internal/repository"
	"cajacancha/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	// Activa returns (nil, nil) when no session is open for the register.
	Activa(ctx context.Context, puntoDeVenta int) (*dto.SesionCajaResponse, error)
	Reporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)
	// ReportePDF returns the path of the closing-report PDF for a closed
	// session, rendering it on demand when the worker's copy is gone.
	ReportePDF(ctx context.Context, sesionID uuid.UUID) (string, error)
	Historial(ctx context.Context, page, limit int) (*dto.HistorialCajaResponse, error)
	// SesionAbierta resolves the open session for a register or fails with
	// ErrSinCajaAbierta. Used by PagoService before posting payment movements.
	SesionAbierta(ctx context.Context, puntoDeVenta int) (*model.SesionCaja, error)
}

type cajaService struct {
	repo           repository.CajaRepository
	dispatcher     *worker.Dispatcher
	rdb            *redis.Client
	pdfStoragePath string
	venueName      string
}

// NewCajaService builds the session manager. dispatcher and rdb may be nil
// (unit tests): closing-report jobs and report caching are then skipped.
func NewCajaService(repo repository.CajaRepository, dispatcher *worker.Dispatcher, rdb *redis.Client, pdfStoragePath, venueName string) CajaService {
	return &cajaService{
		repo:           repo,
		dispatcher:     dispatcher,
		rdb:            rdb,
		pdfStoragePath: pdfStoragePath,
		venueName:      venueName,
	}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoApertura.IsNegative() {
		return nil, ledger.Validacion("el monto de apertura no puede ser negativo")
	}
	if !ledger.EscalaCentavos(req.MontoApertura) {
		return nil, ledger.Validacion("el monto de apertura no puede tener más de dos decimales")
	}

	// Friendly first gate; the partial unique index in storage is the one
	// that actually closes the race between two concurrent opens.
	if existing, err := s.repo.FindSesionAbiertaPorPDV(ctx, req.PuntoDeVenta); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ledger.ErrCajaYaAbierta
	}

	now := time.Now()
	sesion := &model.SesionCaja{
		PuntoDeVenta:  req.PuntoDeVenta,
		UsuarioID:     usuarioID,
		Fecha:         now.Truncate(24 * time.Hour),
		Turno:         req.Turno,
		MontoApertura: req.MontoApertura,
		Estado:        model.SesionAbierta,
		Observaciones: req.Observaciones,
		OpenedAt:      now,
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		return nil, err
	}

	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Int("punto_de_venta", req.PuntoDeVenta).
		Str("monto_apertura", req.MontoApertura.StringFixed(2)).
		Msg("caja abierta")

	resp := sesionToResponse(sesion)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// The expected physical balance is recomputed from the movement set; the
// operator-counted amount is recorded next to it. A non-zero difference is
// classified and logged but never rejects the close.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	sesionID, err := uuid.Parse(req.SesionCajaID)
	if err != nil {
		return nil, ledger.Validacion("sesion_caja_id inválido")
	}
	if req.MontoContadoFisico.IsNegative() {
		return nil, ledger.Validacion("el monto contado no puede ser negativo")
	}
	if !ledger.EscalaCentavos(req.MontoContadoFisico) {
		return nil, ledger.Validacion("el monto contado no puede tener más de dos decimales")
	}

	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion.Estado != model.SesionAbierta {
		return nil, ledger.ErrCajaCerrada
	}

	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	bal := ledger.Calcular(sesion.MontoApertura, movs)

	esperado := bal.Fisico
	contado := req.MontoContadoFisico
	diferencia := contado.Sub(esperado)
	clasificacion := clasificarDiferencia(diferencia, esperado)

	now := time.Now()
	sesion.MontoEsperadoFisico = &esperado
	sesion.MontoCierreFisico = &contado
	sesion.Diferencia = &diferencia
	sesion.ClasificacionDiferencia = &clasificacion
	sesion.Estado = model.SesionCerrada
	sesion.ClosedAt = &now
	if req.Observaciones != nil {
		sesion.Observaciones = req.Observaciones
	}

	// Guarded write: a concurrent close that won the race surfaces here
	// as ErrCajaCerrada instead of overwriting its snapshot.
	if err := s.repo.CerrarSesion(ctx, sesion); err != nil {
		return nil, err
	}

	evt := log.Info()
	if clasificacion == model.DiferenciaNotable {
		evt = log.Warn()
	}
	evt.
		Str("sesion_id", sesionID.String()).
		Str("esperado", esperado.StringFixed(2)).
		Str("contado", contado.StringFixed(2)).
		Str("diferencia", diferencia.StringFixed(2)).
		Str("clasificacion", clasificacion).
		Msg("caja cerrada")

	// Closing report PDF + email — best effort, fire & forget.
	if s.dispatcher != nil {
		payload := worker.CierreJobPayload{SesionID: sesionID.String()}
		if req.EmailReporte != nil {
			payload.Email = *req.EmailReporte
		}
		if err := s.dispatcher.EnqueueCierre(ctx, payload); err != nil {
			log.Warn().Err(err).Str("sesion_id", sesionID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}

	return &dto.CierreCajaResponse{
		SesionCajaID:  sesionID.String(),
		MontoEsperado: esperado,
		MontoContado:  contado,
		Diferencia:    diferencia,
		Clasificacion: clasificacion,
		Estado:        model.SesionCerrada,
	}, nil
}

// ── Activa ────────────────────────────────────────────────────────────────────

func (s *cajaService) Activa(ctx context.Context, puntoDeVenta int) (*dto.SesionCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbiertaPorPDV(ctx, puntoDeVenta)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, nil
	}
	resp := sesionToResponse(sesion)
	return &resp, nil
}

func (s *cajaService) SesionAbierta(ctx context.Context, puntoDeVenta int) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbiertaPorPDV(ctx, puntoDeVenta)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ledger.ErrSinCajaAbierta
	}
	return sesion, nil
}

// ── Reporte ───────────────────────────────────────────────────────────────────

const reporteCacheTTL = time.Hour

func reporteCacheKey(id uuid.UUID) string { return "reporte:sesion:" + id.String() }

func (s *cajaService) Reporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	// Closed sessions are terminal, so their cached report can never drift.
	// Open-session balances are always recomputed from the movement set.
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, reporteCacheKey(sesionID)).Result(); err == nil {
			var cached dto.ReporteCajaResponse
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}

	reporte := &dto.ReporteCajaResponse{
		Sesion:      sesionToResponse(sesion),
		Balance:     ledger.Calcular(sesion.MontoApertura, movs),
		Movimientos: make([]dto.MovimientoResponse, 0, len(movs)),
	}
	for i := range movs {
		reporte.Movimientos = append(reporte.Movimientos, movimientoToResponse(&movs[i]))
	}

	if s.rdb != nil && sesion.Estado == model.SesionCerrada {
		if raw, err := json.Marshal(reporte); err == nil {
			if err := s.rdb.Set(ctx, reporteCacheKey(sesionID), raw, reporteCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("no se pudo cachear el reporte de cierre")
			}
		}
	}
	return reporte, nil
}

// ReportePDF resolves (or re-renders) the closing-report PDF of a closed
// session. The cierre worker writes the file at close time; if it was pruned
// or the job dead-lettered, the report is regenerated from the movement set.
func (s *cajaService) ReportePDF(ctx context.Context, sesionID uuid.UUID) (string, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return "", err
	}
	if sesion.Estado != model.SesionCerrada {
		return "", ledger.Validacion("el reporte PDF se genera al cerrar la sesión")
	}

	path := filepath.Join(s.pdfStoragePath, fmt.Sprintf("cierre_%s.pdf", sesionID))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return "", err
	}
	return infra.GenerateCierrePDF(sesion, ledger.Calcular(sesion.MontoApertura, movs), movs, s.venueName, s.pdfStoragePath)
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, page, limit int) (*dto.HistorialCajaResponse, error) {
	sesiones, total, err := s.repo.ListSesionesCerradas(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SesionCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, sesionToResponse(&sesiones[i]))
	}
	return &dto.HistorialCajaResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// diferenciaExactaTolerancia absorbs rounding of "a few cents" when counting
// physical cash against the expected balance.
var diferenciaExactaTolerancia = decimal.NewFromFloat(0.05)

// clasificarDiferencia buckets a closing difference for reporting.
// The classification is informational: no bucket blocks the close.
func clasificarDiferencia(diferencia, esperado decimal.Decimal) string {
	abs := diferencia.Abs()
	if abs.LessThanOrEqual(diferenciaExactaTolerancia) {
		return model.DiferenciaExacta
	}
	if !esperado.IsZero() {
		pct := abs.Div(esperado.Abs()).Mul(decimal.NewFromInt(100))
		if pct.LessThanOrEqual(decimal.NewFromInt(1)) {
			return model.DiferenciaLeve
		}
	}
	return model.DiferenciaNotable
}

func sesionToResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	resp := dto.SesionCajaResponse{
		ID:                      s.ID.String(),
		PuntoDeVenta:            s.PuntoDeVenta,
		UsuarioID:               s.UsuarioID.String(),
		Fecha:                   s.Fecha.Format("2006-01-02"),
		Turno:                   s.Turno,
		MontoApertura:           s.MontoApertura,
		MontoEsperadoFisico:     s.MontoEsperadoFisico,
		MontoCierreFisico:       s.MontoCierreFisico,
		Diferencia:              s.Diferencia,
		ClasificacionDiferencia: s.ClasificacionDiferencia,
		Estado:                  s.Estado,
		Observaciones:           s.Observaciones,
		OpenedAt:                s.OpenedAt.UTC().Format(time.RFC3339),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.UTC().Format(time.RFC3339)
		resp.ClosedAt = &t
	}
	return resp
}

func movimientoToResponse(m *model.Movimiento) dto.MovimientoResponse {
	resp := dto.MovimientoResponse{
		ID:                  m.ID.String(),
		SesionCajaID:        m.SesionCajaID.String(),
		Categoria:           m.Categoria,
		MetodoPago:          m.MetodoPago,
		Monto:               m.Monto,
		AfectaBalanceFisico: m.AfectaBalanceFisico,
		Concepto:            m.Concepto,
		RegistradoPor:       m.RegistradoPor.String(),
		Anulado:             m.Anulado,
		MotivoAnulacion:     m.MotivoAnulacion,
		CreatedAt:           m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.TransaccionID != nil {
		id := m.TransaccionID.String()
		resp.TransaccionID = &id
	}
	if m.AnuladoEn != nil {
		t := m.AnuladoEn.UTC().Format(time.RFC3339)
		resp.AnuladoEn = &t
	}
	return resp
}
