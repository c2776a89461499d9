package dto

import (
	"cajacancha/internal/ledger"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	PuntoDeVenta  int             `json:"punto_de_venta" validate:"required,min=1"`
	MontoApertura decimal.Decimal `json:"monto_apertura" validate:"min=0"`
	Turno         *string         `json:"turno"          validate:"omitempty,max=20"`
	Observaciones *string         `json:"observaciones"`
}

type CerrarCajaRequest struct {
	SesionCajaID       string          `json:"sesion_caja_id"        validate:"required,uuid"`
	MontoContadoFisico decimal.Decimal `json:"monto_contado_fisico"  validate:"min=0"`
	Observaciones      *string         `json:"observaciones"`
	// EmailReporte triggers the async closing-report email when present.
	EmailReporte *string `json:"email_reporte" validate:"omitempty,email"`
}

type MovimientoRequest struct {
	SesionCajaID string          `json:"sesion_caja_id" validate:"required,uuid"`
	Categoria    string          `json:"categoria"      validate:"required,oneof=ingreso egreso"`
	MetodoPago   string          `json:"metodo_pago"    validate:"required,oneof=efectivo transferencia billetera"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Concepto     string          `json:"concepto"       validate:"required,min=3"`
}

type AnularMovimientoRequest struct {
	Motivo string `json:"motivo" validate:"required,min=10"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID                      string           `json:"id"`
	PuntoDeVenta            int              `json:"punto_de_venta"`
	UsuarioID               string           `json:"usuario_id"`
	Fecha                   string           `json:"fecha"`
	Turno                   *string          `json:"turno,omitempty"`
	MontoApertura           decimal.Decimal  `json:"monto_apertura"`
	MontoEsperadoFisico     *decimal.Decimal `json:"monto_esperado_fisico,omitempty"`
	MontoCierreFisico       *decimal.Decimal `json:"monto_cierre_fisico,omitempty"`
	Diferencia              *decimal.Decimal `json:"diferencia,omitempty"`
	ClasificacionDiferencia *string          `json:"clasificacion_diferencia,omitempty"`
	Estado                  string           `json:"estado"`
	Observaciones           *string          `json:"observaciones,omitempty"`
	OpenedAt                string           `json:"opened_at"`
	ClosedAt                *string          `json:"closed_at,omitempty"`
}

type CierreCajaResponse struct {
	SesionCajaID  string          `json:"sesion_caja_id"`
	MontoEsperado decimal.Decimal `json:"monto_esperado"`
	MontoContado  decimal.Decimal `json:"monto_contado"`
	Diferencia    decimal.Decimal `json:"diferencia"`
	Clasificacion string          `json:"clasificacion"`
	Estado        string          `json:"estado"`
}

type MovimientoResponse struct {
	ID                  string          `json:"id"`
	SesionCajaID        string          `json:"sesion_caja_id"`
	Categoria           string          `json:"categoria"`
	MetodoPago          string          `json:"metodo_pago"`
	Monto               decimal.Decimal `json:"monto"`
	AfectaBalanceFisico bool            `json:"afecta_balance_fisico"`
	Concepto            string          `json:"concepto"`
	RegistradoPor       string          `json:"registrado_por"`
	TransaccionID       *string         `json:"transaccion_id,omitempty"`
	Anulado             bool            `json:"anulado"`
	MotivoAnulacion     *string         `json:"motivo_anulacion,omitempty"`
	AnuladoEn           *string         `json:"anulado_en,omitempty"`
	CreatedAt           string          `json:"created_at"`
}

type ReporteCajaResponse struct {
	Sesion      SesionCajaResponse   `json:"sesion"`
	Balance     ledger.Balance       `json:"balance"`
	Movimientos []MovimientoResponse `json:"movimientos"`
}

type HistorialCajaResponse struct {
	Data  []SesionCajaResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
