package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado de un pago de cancha. Always a pure function of
// monto_pagado vs monto_total, see EstadoPago.
const (
	PagoPendiente = "pendiente"
	PagoParcial   = "parcial"
	PagoPagado    = "pagado"
)

// EstadoPago derives the due state from its amounts. It is the only way an
// estado value is ever produced; callers recompute it after every mutation
// instead of adjusting it incrementally.
func EstadoPago(total, pagado decimal.Decimal) string {
	switch {
	case pagado.IsZero():
		return PagoPendiente
	case pagado.Equal(total):
		return PagoPagado
	default:
		return PagoParcial
	}
}

// PagoCancha is an amount owed by a team for a scheduled pitch slot,
// settled by one or more partial Transacciones across payment methods.
type PagoCancha struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Equipo        string    `gorm:"not null"`
	Cancha        int       `gorm:"not null"`
	FechaTurno    time.Time `gorm:"not null;index"`
	Descripcion   *string
	EmailContacto *string
	MontoTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoPagado   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Estado        string          `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Transacciones []Transaccion `gorm:"foreignKey:PagoCanchaID"`
}

// TableName overrides GORM's default pluralization.
func (PagoCancha) TableName() string { return "pagos_cancha" }

// MontoPendiente is derived on demand. It is never stored, so it cannot
// drift from the amounts it is computed from.
func (p *PagoCancha) MontoPendiente() decimal.Decimal {
	return p.MontoTotal.Sub(p.MontoPagado)
}

// Transaccion is one payment event against a PagoCancha. Every transaction
// owns exactly one Movimiento (created together, voided together).
type Transaccion struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PagoCanchaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Metodo       string          `gorm:"type:varchar(20);not null"`
	// Method-specific metadata: operation number + origin bank for
	// transferencia, gateway settlement reference for billetera.
	NumeroOperacion     *string `gorm:"type:varchar(50)"`
	BancoOrigen         *string `gorm:"type:varchar(100)"`
	ReferenciaBilletera *string `gorm:"type:varchar(100)"`
	Observaciones       *string
	MovimientoID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	RegistradaPor       uuid.UUID `gorm:"type:uuid;not null"`
	Anulada             bool      `gorm:"not null;default:false"`
	MotivoAnulacion     *string
	AnuladaEn           *time.Time
	AnuladaPor          *uuid.UUID `gorm:"type:uuid"`
	CreatedAt           time.Time

	Movimiento *Movimiento `gorm:"foreignKey:MovimientoID"`
}

// TableName overrides GORM's default pluralization.
func (Transaccion) TableName() string { return "transacciones" }
