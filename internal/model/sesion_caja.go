package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado de una sesión de caja.
const (
	SesionAbierta = "abierta"
	SesionCerrada = "cerrada"
)

// Clasificación informativa de la diferencia de cierre.
// Una diferencia nunca bloquea el cierre — se registra y se reporta.
const (
	DiferenciaExacta  = "exacta"
	DiferenciaLeve    = "leve"
	DiferenciaNotable = "notable"
)

// SesionCaja represents one register-day for a punto de venta.
// Estado: "abierta" | "cerrada". The transition is one-way — a closed
// session is never reopened; a new day requires a new Abrir.
type SesionCaja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PuntoDeVenta  int             `gorm:"not null;index"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null"`
	Fecha         time.Time       `gorm:"type:date;not null"`
	Turno         *string         `gorm:"type:varchar(20)"`
	MontoApertura decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Closing snapshot — nil until the session is closed.
	// MontoEsperadoFisico is recomputed from the movement set at close time;
	// it records what was expected, it is never a balance source of truth.
	MontoEsperadoFisico     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoCierreFisico       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia              *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ClasificacionDiferencia *string          `gorm:"type:varchar(20)"`
	Estado                  string           `gorm:"type:varchar(20);not null;default:'abierta'"`
	Observaciones           *string
	OpenedAt                time.Time
	ClosedAt                *time.Time

	Movimientos []Movimiento `gorm:"foreignKey:SesionCajaID"`
}

// TableName overrides GORM's default pluralization (sesion_cajas → sesiones_caja).
func (SesionCaja) TableName() string { return "sesiones_caja" }
