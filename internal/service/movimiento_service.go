package service

import (
	"context"
	"strings"
	"time"

	"cajacancha/internal/dto"
	"cajacancha/internal/ledger"
	"cajacancha/internal/model"
	"cajacancha/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type MovimientoService interface {
	Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoRequest) (*dto.MovimientoResponse, error)
	Anular(ctx context.Context, usuarioID uuid.UUID, movimientoID uuid.UUID, req dto.AnularMovimientoRequest) (*dto.MovimientoResponse, error)
	Obtener(ctx context.Context, movimientoID uuid.UUID) (*dto.MovimientoResponse, error)
	Listar(ctx context.Context, sesionID uuid.UUID) ([]dto.MovimientoResponse, error)

	// RegistrarTx and AnularTx run inside a caller-owned transaction. They
	// are the reconciliation engine's entry points: payment movements are
	// written and reversed together with their transaction rows, and the
	// reversal path is exempt from the physical-only manual void rule.
	RegistrarTx(tx *gorm.DB, m *model.Movimiento) error
	AnularTx(tx *gorm.DB, movimientoID uuid.UUID, motivo string, anuladoPor uuid.UUID) error
}

type movimientoService struct {
	repo repository.CajaRepository
}

func NewMovimientoService(repo repository.CajaRepository) MovimientoService {
	return &movimientoService{repo: repo}
}

// ── Registrar ─────────────────────────────────────────────────────────────────

func (s *movimientoService) Registrar(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoRequest) (*dto.MovimientoResponse, error) {
	sesionID, err := uuid.Parse(req.SesionCajaID)
	if err != nil {
		return nil, ledger.Validacion("sesion_caja_id inválido")
	}
	if !req.Monto.IsPositive() {
		return nil, ledger.Validacion("el monto debe ser mayor que cero")
	}
	if !ledger.EscalaCentavos(req.Monto) {
		return nil, ledger.Validacion("el monto no puede tener más de dos decimales")
	}

	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion.Estado != model.SesionAbierta {
		return nil, ledger.ErrCajaCerrada
	}

	mov := &model.Movimiento{
		ID:                  uuid.New(),
		SesionCajaID:        sesionID,
		Categoria:           req.Categoria,
		MetodoPago:          req.MetodoPago,
		Monto:               req.Monto,
		AfectaBalanceFisico: model.AfectaFisico(req.MetodoPago),
		Concepto:            req.Concepto,
		RegistradoPor:       usuarioID,
		CreatedAt:           time.Now(),
	}
	if err := s.repo.CreateMovimiento(ctx, mov); err != nil {
		return nil, err
	}

	log.Info().
		Str("movimiento_id", mov.ID.String()).
		Str("sesion_id", sesionID.String()).
		Str("categoria", mov.Categoria).
		Str("metodo", mov.MetodoPago).
		Str("monto", mov.Monto.StringFixed(2)).
		Msg("movimiento registrado")

	resp := movimientoToResponse(mov)
	return &resp, nil
}

// RegistrarTx writes a movement inside the caller's transaction. Session and
// amount checks are the caller's responsibility.
func (s *movimientoService) RegistrarTx(tx *gorm.DB, m *model.Movimiento) error {
	m.AfectaBalanceFisico = model.AfectaFisico(m.MetodoPago)
	return s.repo.CreateMovimientoTx(tx, m)
}

// ── Anular ────────────────────────────────────────────────────────────────────
// Manual voids only apply to cash movements: digital entries mirror external
// money (a bank transfer does not un-happen), so they can only be reversed
// through the payment-reversal flow, which records the compensation on the
// transaction as well.

func (s *movimientoService) Anular(ctx context.Context, usuarioID uuid.UUID, movimientoID uuid.UUID, req dto.AnularMovimientoRequest) (*dto.MovimientoResponse, error) {
	motivo := strings.TrimSpace(req.Motivo)
	if len(motivo) < ledger.MotivoMinimo {
		return nil, ledger.Validacion("el motivo debe tener al menos %d caracteres", ledger.MotivoMinimo)
	}

	mov, err := s.repo.FindMovimientoByID(ctx, movimientoID)
	if err != nil {
		return nil, err
	}
	if mov.Anulado {
		return nil, ledger.ErrYaAnulado
	}
	if !mov.AfectaBalanceFisico {
		return nil, ledger.Validacion("los movimientos digitales solo se revierten anulando la transacción de pago")
	}
	if mov.TransaccionID != nil {
		return nil, ledger.Validacion("el movimiento pertenece a una transacción de pago; anule la transacción")
	}

	now := time.Now()
	mov.Anulado = true
	mov.MotivoAnulacion = &motivo
	mov.AnuladoEn = &now
	mov.AnuladoPor = &usuarioID
	if err := s.repo.MarcarAnulado(ctx, mov); err != nil {
		return nil, err
	}

	log.Info().
		Str("movimiento_id", movimientoID.String()).
		Str("anulado_por", usuarioID.String()).
		Msg("movimiento anulado")

	resp := movimientoToResponse(mov)
	return &resp, nil
}

// AnularTx flips the void flags inside the caller's transaction. Used by the
// payment reversal, which may void digital movements.
func (s *movimientoService) AnularTx(tx *gorm.DB, movimientoID uuid.UUID, motivo string, anuladoPor uuid.UUID) error {
	now := time.Now()
	mov := &model.Movimiento{
		ID:              movimientoID,
		MotivoAnulacion: &motivo,
		AnuladoEn:       &now,
		AnuladoPor:      &anuladoPor,
	}
	return s.repo.MarcarAnuladoTx(tx, mov)
}

// ── Lectura ───────────────────────────────────────────────────────────────────

func (s *movimientoService) Obtener(ctx context.Context, movimientoID uuid.UUID) (*dto.MovimientoResponse, error) {
	mov, err := s.repo.FindMovimientoByID(ctx, movimientoID)
	if err != nil {
		return nil, err
	}
	resp := movimientoToResponse(mov)
	return &resp, nil
}

func (s *movimientoService) Listar(ctx context.Context, sesionID uuid.UUID) ([]dto.MovimientoResponse, error) {
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovimientoResponse, 0, len(movs))
	for i := range movs {
		out = append(out, movimientoToResponse(&movs[i]))
	}
	return out, nil
}
