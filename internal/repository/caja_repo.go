package repository

import (
	"context"
	"errors"
	"fmt"

	"cajacancha/internal/ledger"
	"cajacancha/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CajaRepository is the Ledger Store for sessions and movements. No business
// rules here beyond the integrity gates the schema itself enforces: the
// partial unique index on (punto_de_venta) WHERE estado='abierta' rejects a
// duplicate open even when two requests pass the service-level check at once.
type CajaRepository interface {
	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// FindSesionAbiertaPorPDV returns (nil, nil) when no session is open.
	FindSesionAbiertaPorPDV(ctx context.Context, puntoDeVenta int) (*model.SesionCaja, error)
	// CerrarSesion persists the closing snapshot with a single guarded
	// UPDATE on estado='abierta'. Two concurrent closes race on the guard:
	// the loser matches no row and gets ledger.ErrCajaCerrada, so the
	// winner's counted amount and difference are never overwritten.
	CerrarSesion(ctx context.Context, s *model.SesionCaja) error
	ListSesionesCerradas(ctx context.Context, page, limit int) ([]model.SesionCaja, int64, error)

	CreateMovimiento(ctx context.Context, m *model.Movimiento) error
	CreateMovimientoTx(tx *gorm.DB, m *model.Movimiento) error
	FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.Movimiento, error)
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.Movimiento, error)
	// MarcarAnulado flips the void flags in a single guarded UPDATE. It is
	// the only write a posted movement ever receives; amount and category
	// columns are untouched. Returns ledger.ErrYaAnulado when the row was
	// already voided (the WHERE anulado=false guard matched nothing).
	MarcarAnulado(ctx context.Context, m *model.Movimiento) error
	MarcarAnuladoTx(tx *gorm.DB, m *model.Movimiento) error

	// DB exposes the underlying handle for cross-repository transactions.
	// Nil in unit tests — services fall back to non-transactional mode.
	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

// traducir converts GORM errors into the domain taxonomy. Anything that is
// not a recognized condition is wrapped as a storage failure.
func traducir(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ledger.ErrNoEncontrado
	default:
		return fmt.Errorf("%w: %v", ledger.ErrAlmacenamiento, err)
	}
}

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	err := r.db.WithContext(ctx).Create(s).Error
	// uq_sesiones_caja_abierta fired: someone else opened first.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ledger.ErrCajaYaAbierta
	}
	return traducir(err)
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, traducir(err)
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionAbiertaPorPDV(ctx context.Context, puntoDeVenta int) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("punto_de_venta = ? AND estado = ?", puntoDeVenta, model.SesionAbierta).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, traducir(err)
	}
	return &s, nil
}

func (r *cajaRepo) CerrarSesion(ctx context.Context, s *model.SesionCaja) error {
	res := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ? AND estado = ?", s.ID, model.SesionAbierta).
		Updates(map[string]interface{}{
			"monto_esperado_fisico":    s.MontoEsperadoFisico,
			"monto_cierre_fisico":      s.MontoCierreFisico,
			"diferencia":               s.Diferencia,
			"clasificacion_diferencia": s.ClasificacionDiferencia,
			"estado":                   model.SesionCerrada,
			"observaciones":            s.Observaciones,
			"closed_at":                s.ClosedAt,
		})
	if res.Error != nil {
		return traducir(res.Error)
	}
	// 0 rows: the service resolved the id moments ago, so the session was
	// closed by a concurrent request between the read and this write.
	if res.RowsAffected == 0 {
		return ledger.ErrCajaCerrada
	}
	return nil
}

func (r *cajaRepo) ListSesionesCerradas(ctx context.Context, page, limit int) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64

	q := r.db.WithContext(ctx).Model(&model.SesionCaja{}).Where("estado = ?", model.SesionCerrada)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, traducir(err)
	}
	err := q.Order("closed_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sesiones).Error
	if err != nil {
		return nil, 0, traducir(err)
	}
	return sesiones, total, nil
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.Movimiento) error {
	return traducir(r.db.WithContext(ctx).Create(m).Error)
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.Movimiento) error {
	return traducir(tx.Create(m).Error)
}

func (r *cajaRepo) FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.Movimiento, error) {
	var m model.Movimiento
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, traducir(err)
	}
	return &m, nil
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.Movimiento, error) {
	var movs []model.Movimiento
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ?", sesionCajaID).
		Order("created_at ASC").
		Find(&movs).Error
	if err != nil {
		return nil, traducir(err)
	}
	return movs, nil
}

func (r *cajaRepo) MarcarAnulado(ctx context.Context, m *model.Movimiento) error {
	return marcarAnulado(r.db.WithContext(ctx), m)
}

func (r *cajaRepo) MarcarAnuladoTx(tx *gorm.DB, m *model.Movimiento) error {
	return marcarAnulado(tx, m)
}

func marcarAnulado(db *gorm.DB, m *model.Movimiento) error {
	res := db.Model(&model.Movimiento{}).
		Where("id = ? AND anulado = false", m.ID).
		Updates(map[string]interface{}{
			"anulado":          true,
			"motivo_anulacion": m.MotivoAnulacion,
			"anulado_en":       m.AnuladoEn,
			"anulado_por":      m.AnuladoPor,
		})
	if res.Error != nil {
		return traducir(res.Error)
	}
	// 0 rows: either already voided or missing — the service already
	// resolved the id, so a concurrent void is the remaining explanation.
	if res.RowsAffected == 0 {
		return ledger.ErrYaAnulado
	}
	return nil
}
