package repository

import (
	"context"
	"time"

	"cajacancha/internal/ledger"
	"cajacancha/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PagoFilter narrows the due listing.
type PagoFilter struct {
	Estado string
	Desde  *time.Time
	Hasta  *time.Time
	Page   int
	Limit  int
}

// PagoRepository is the Ledger Store for dues and their transactions.
type PagoRepository interface {
	Create(ctx context.Context, p *model.PagoCancha) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PagoCancha, error)
	// FindByIDForUpdateTx loads the due with a row-level lock so two
	// concurrent payments cannot both read the same pending amount.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.PagoCancha, error)
	// UpdateMontosTx persists only the reconciliation columns: monto_pagado
	// and estado. Everything else on a due is immutable after creation.
	UpdateMontosTx(tx *gorm.DB, p *model.PagoCancha) error
	List(ctx context.Context, filter PagoFilter) ([]model.PagoCancha, int64, error)

	CreateTransaccionTx(tx *gorm.DB, t *model.Transaccion) error
	FindTransaccionByID(ctx context.Context, id uuid.UUID) (*model.Transaccion, error)
	FindTransaccionByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Transaccion, error)
	// MarcarTransaccionAnuladaTx flips the void flags with the same guarded
	// UPDATE semantics as the movement store.
	MarcarTransaccionAnuladaTx(tx *gorm.DB, t *model.Transaccion) error

	DB() *gorm.DB
}

type pagoRepo struct{ db *gorm.DB }

func NewPagoRepository(db *gorm.DB) PagoRepository { return &pagoRepo{db: db} }

func (r *pagoRepo) DB() *gorm.DB { return r.db }

func (r *pagoRepo) Create(ctx context.Context, p *model.PagoCancha) error {
	return traducir(r.db.WithContext(ctx).Create(p).Error)
}

func (r *pagoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PagoCancha, error) {
	var p model.PagoCancha
	err := r.db.WithContext(ctx).
		Preload("Transacciones", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Transacciones.Movimiento").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &p, nil
}

func (r *pagoRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.PagoCancha, error) {
	var p model.PagoCancha
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, traducir(err)
	}
	return &p, nil
}

func (r *pagoRepo) UpdateMontosTx(tx *gorm.DB, p *model.PagoCancha) error {
	res := tx.Model(&model.PagoCancha{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"monto_pagado": p.MontoPagado,
			"estado":       p.Estado,
		})
	if res.Error != nil {
		return traducir(res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrNoEncontrado
	}
	return nil
}

func (r *pagoRepo) List(ctx context.Context, filter PagoFilter) ([]model.PagoCancha, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.PagoCancha{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Desde != nil {
		q = q.Where("fecha_turno >= ?", *filter.Desde)
	}
	if filter.Hasta != nil {
		q = q.Where("fecha_turno <= ?", *filter.Hasta)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, traducir(err)
	}

	var pagos []model.PagoCancha
	err := q.Order("fecha_turno DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&pagos).Error
	if err != nil {
		return nil, 0, traducir(err)
	}
	return pagos, total, nil
}

func (r *pagoRepo) CreateTransaccionTx(tx *gorm.DB, t *model.Transaccion) error {
	return traducir(tx.Create(t).Error)
}

func (r *pagoRepo) FindTransaccionByID(ctx context.Context, id uuid.UUID) (*model.Transaccion, error) {
	var t model.Transaccion
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, traducir(err)
	}
	return &t, nil
}

func (r *pagoRepo) FindTransaccionByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Transaccion, error) {
	var t model.Transaccion
	if err := tx.First(&t, "id = ?", id).Error; err != nil {
		return nil, traducir(err)
	}
	return &t, nil
}

func (r *pagoRepo) MarcarTransaccionAnuladaTx(tx *gorm.DB, t *model.Transaccion) error {
	res := tx.Model(&model.Transaccion{}).
		Where("id = ? AND anulada = false", t.ID).
		Updates(map[string]interface{}{
			"anulada":          true,
			"motivo_anulacion": t.MotivoAnulacion,
			"anulada_en":       t.AnuladaEn,
			"anulada_por":      t.AnuladaPor,
		})
	if res.Error != nil {
		return traducir(res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrYaAnulado
	}
	return nil
}
