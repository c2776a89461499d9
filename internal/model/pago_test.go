package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEstadoPago(t *testing.T) {
	total := decimal.NewFromInt(1500)

	assert.Equal(t, PagoPendiente, EstadoPago(total, decimal.Zero))
	assert.Equal(t, PagoParcial, EstadoPago(total, decimal.NewFromInt(500)))
	assert.Equal(t, PagoPagado, EstadoPago(total, decimal.NewFromInt(1500)))
}

func TestMontoPendiente(t *testing.T) {
	p := PagoCancha{
		MontoTotal:  decimal.RequireFromString("1500.00"),
		MontoPagado: decimal.RequireFromString("499.99"),
	}
	assert.True(t, p.MontoPendiente().Equal(decimal.RequireFromString("1000.01")))
}

func TestAfectaFisico(t *testing.T) {
	assert.True(t, AfectaFisico(MetodoEfectivo))
	assert.False(t, AfectaFisico(MetodoTransferencia))
	assert.False(t, AfectaFisico(MetodoBilletera))
}
