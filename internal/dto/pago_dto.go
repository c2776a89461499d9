package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearPagoRequest struct {
	Equipo        string          `json:"equipo"         validate:"required,min=2,max=100"`
	Cancha        int             `json:"cancha"         validate:"required,min=1"`
	FechaTurno    string          `json:"fecha_turno"    validate:"required"` // RFC 3339
	Descripcion   *string         `json:"descripcion"`
	EmailContacto *string         `json:"email_contacto" validate:"omitempty,email"`
	MontoTotal    decimal.Decimal `json:"monto_total"    validate:"required,gt=0"`
}

type RegistrarTransaccionRequest struct {
	PuntoDeVenta int             `json:"punto_de_venta" validate:"required,min=1"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Metodo       string          `json:"metodo"         validate:"required,oneof=efectivo transferencia billetera"`
	// transferencia metadata
	NumeroOperacion *string `json:"numero_operacion" validate:"omitempty,max=50"`
	BancoOrigen     *string `json:"banco_origen"     validate:"omitempty,max=100"`
	// billetera metadata: the settlement reference confirmed by the gateway
	ReferenciaBilletera *string `json:"referencia_billetera" validate:"omitempty,max=100"`
	Observaciones       *string `json:"observaciones"`
}

type AnularTransaccionRequest struct {
	Motivo string `json:"motivo" validate:"required,min=10"`
}

type PagoFilterRequest struct {
	Estado string `form:"estado" validate:"omitempty,oneof=pendiente parcial pagado"`
	Desde  string `form:"desde"`
	Hasta  string `form:"hasta"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TransaccionResponse struct {
	ID                  string          `json:"id"`
	PagoCanchaID        string          `json:"pago_cancha_id"`
	Monto               decimal.Decimal `json:"monto"`
	Metodo              string          `json:"metodo"`
	NumeroOperacion     *string         `json:"numero_operacion,omitempty"`
	BancoOrigen         *string         `json:"banco_origen,omitempty"`
	ReferenciaBilletera *string         `json:"referencia_billetera,omitempty"`
	Observaciones       *string         `json:"observaciones,omitempty"`
	MovimientoID        string          `json:"movimiento_id"`
	Anulada             bool            `json:"anulada"`
	MotivoAnulacion     *string         `json:"motivo_anulacion,omitempty"`
	CreatedAt           string          `json:"created_at"`
}

type PagoResponse struct {
	ID             string                `json:"id"`
	Equipo         string                `json:"equipo"`
	Cancha         int                   `json:"cancha"`
	FechaTurno     string                `json:"fecha_turno"`
	Descripcion    *string               `json:"descripcion,omitempty"`
	MontoTotal     decimal.Decimal       `json:"monto_total"`
	MontoPagado    decimal.Decimal       `json:"monto_pagado"`
	MontoPendiente decimal.Decimal       `json:"monto_pendiente"`
	Estado         string                `json:"estado"`
	Transacciones  []TransaccionResponse `json:"transacciones,omitempty"`
	CreatedAt      string                `json:"created_at"`
}

type PagoListResponse struct {
	Data  []PagoResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// AnulacionResponse is the reconciliation snapshot after a reversal: the
// caller sees the pago exactly as if the transacción had never happened.
type AnulacionResponse struct {
	TransaccionID  string          `json:"transaccion_id"`
	MovimientoID   string          `json:"movimiento_id"`
	PagoCanchaID   string          `json:"pago_cancha_id"`
	MontoRevertido decimal.Decimal `json:"monto_revertido"`
	MontoPagado    decimal.Decimal `json:"monto_pagado"`
	MontoPendiente decimal.Decimal `json:"monto_pendiente"`
	Estado         string          `json:"estado"`
}
