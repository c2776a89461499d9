package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Categoría de un movimiento.
const (
	CategoriaIngreso = "ingreso"
	CategoriaEgreso  = "egreso"
)

// Métodos de pago. Solo "efectivo" afecta el balance físico.
const (
	MetodoEfectivo      = "efectivo"
	MetodoTransferencia = "transferencia"
	MetodoBilletera     = "billetera"
)

// AfectaFisico reports whether a payment method moves physical cash.
func AfectaFisico(metodo string) bool { return metodo == MetodoEfectivo }

// Movimiento is one entry in the cash register ledger.
// Entries are immutable once posted except for the void flag block: a
// movement only ever transitions anulado=false → true, exactly once, and is
// never deleted — voided rows stay in storage as the audit trail and are
// excluded from every balance calculation.
type Movimiento struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID `gorm:"type:uuid;index;not null"`
	Categoria    string    `gorm:"type:varchar(10);not null"`
	MetodoPago   string    `gorm:"type:varchar(20);not null"`
	// Monto is always positive; the sign of its effect comes from Categoria.
	Monto               decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AfectaBalanceFisico bool            `gorm:"not null"`
	Concepto            string          `gorm:"not null"`
	RegistradoPor       uuid.UUID       `gorm:"type:uuid;not null"`
	// TransaccionID links back to the payment transaction that generated
	// this movement; nil for manual movements.
	TransaccionID   *uuid.UUID `gorm:"type:uuid;index"`
	Anulado         bool       `gorm:"not null;default:false"`
	MotivoAnulacion *string
	AnuladoEn       *time.Time
	AnuladoPor      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time
}

// TableName overrides GORM's default pluralization.
func (Movimiento) TableName() string { return "movimientos" }
