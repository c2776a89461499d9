package ledger

import (
	"testing"

	"cajacancha/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mov(categoria, metodo, monto string, anulado bool) model.Movimiento {
	return model.Movimiento{
		Categoria:           categoria,
		MetodoPago:          metodo,
		Monto:               d(monto),
		AfectaBalanceFisico: model.AfectaFisico(metodo),
		Anulado:             anulado,
	}
}

func TestCalcularSoloApertura(t *testing.T) {
	b := Calcular(d("1000.00"), nil)

	assert.True(t, b.Fisico.Equal(d("1000.00")))
	assert.True(t, b.Digital.IsZero())
	assert.True(t, b.Total.Equal(d("1000.00")))
}

func TestCalcularSeparaFisicoDeDigital(t *testing.T) {
	movs := []model.Movimiento{
		mov(model.CategoriaIngreso, model.MetodoEfectivo, "500.00", false),
		mov(model.CategoriaIngreso, model.MetodoTransferencia, "800.00", false),
		mov(model.CategoriaIngreso, model.MetodoBilletera, "200.00", false),
		mov(model.CategoriaEgreso, model.MetodoEfectivo, "150.00", false),
	}
	b := Calcular(d("1000.00"), movs)

	// efectivo: 1000 + 500 - 150; transferencia y billetera no tocan la caja
	assert.True(t, b.Fisico.Equal(d("1350.00")), "fisico = %s", b.Fisico)
	assert.True(t, b.Digital.Equal(d("1000.00")), "digital = %s", b.Digital)
	assert.True(t, b.Total.Equal(d("2350.00")))
	assert.True(t, b.IngresosFisicos.Equal(d("500.00")))
	assert.True(t, b.EgresosFisicos.Equal(d("150.00")))
	assert.True(t, b.IngresosDigitales.Equal(d("1000.00")))
}

func TestCalcularExcluyeAnulados(t *testing.T) {
	movs := []model.Movimiento{
		mov(model.CategoriaIngreso, model.MetodoEfectivo, "300.00", false),
		mov(model.CategoriaIngreso, model.MetodoEfectivo, "999.99", true),
		mov(model.CategoriaEgreso, model.MetodoTransferencia, "50.00", true),
	}
	b := Calcular(d("0.00"), movs)

	assert.True(t, b.Fisico.Equal(d("300.00")))
	assert.True(t, b.Digital.IsZero())
}

func TestCalcularEsIndependienteDelOrden(t *testing.T) {
	movs := []model.Movimiento{
		mov(model.CategoriaIngreso, model.MetodoEfectivo, "120.50", false),
		mov(model.CategoriaEgreso, model.MetodoEfectivo, "30.25", false),
		mov(model.CategoriaIngreso, model.MetodoBilletera, "75.75", false),
		mov(model.CategoriaEgreso, model.MetodoTransferencia, "10.00", false),
	}
	invertidos := []model.Movimiento{movs[3], movs[2], movs[1], movs[0]}

	a := Calcular(d("500.00"), movs)
	b := Calcular(d("500.00"), invertidos)

	assert.True(t, a.Fisico.Equal(b.Fisico))
	assert.True(t, a.Digital.Equal(b.Digital))
	assert.True(t, a.Total.Equal(b.Total))
}

func TestCalcularEgresoDigitalPuedeDejarDigitalNegativo(t *testing.T) {
	// Un egreso por transferencia sin ingresos previos: el balance digital
	// queda negativo y el reporte lo muestra tal cual.
	movs := []model.Movimiento{
		mov(model.CategoriaEgreso, model.MetodoTransferencia, "100.00", false),
	}
	b := Calcular(d("0.00"), movs)

	assert.True(t, b.Digital.Equal(d("-100.00")))
	assert.True(t, b.Fisico.IsZero())
}

func TestCalcularPreservaPrecisionDecimal(t *testing.T) {
	movs := []model.Movimiento{
		mov(model.CategoriaIngreso, model.MetodoEfectivo, "0.10", false),
		mov(model.CategoriaIngreso, model.MetodoEfectivo, "0.20", false),
	}
	b := Calcular(d("0.00"), movs)

	// 0.1 + 0.2 exacto, sin artefactos de flotante
	assert.True(t, b.Fisico.Equal(d("0.30")))
}

func TestEscalaCentavos(t *testing.T) {
	casos := []struct {
		monto string
		want  bool
	}{
		{"0", true},
		{"500", true},
		{"1499.99", true},
		{"500.100", true}, // ceros a la derecha no cambian la escala
		{"-20.05", true},
		{"99.999", false},
		{"1499.999", false},
		{"0.001", false},
	}
	for _, c := range casos {
		assert.Equal(t, c.want, EscalaCentavos(d(c.monto)), "monto %s", c.monto)
	}
}
