package ledger

import (
	"cajacancha/internal/model"

	"github.com/shopspring/decimal"
)

// EscalaCentavos reports whether monto fits the two-decimal fixed-point
// scale of the money columns. Storage rounds silently on write, so a
// sub-cent amount would diverge from the estado derived before the write;
// services reject it at every monetary entry point instead.
func EscalaCentavos(monto decimal.Decimal) bool {
	return monto.Equal(monto.Truncate(2))
}

// Balance is the derived snapshot of a session's money position. It is
// recomputed from the movement set on every read — never persisted as a
// source of truth — so it stays consistent through voids by construction.
type Balance struct {
	Fisico  decimal.Decimal `json:"fisico"`
	Digital decimal.Decimal `json:"digital"`
	Total   decimal.Decimal `json:"total"`

	IngresosFisicos   decimal.Decimal `json:"ingresos_fisicos"`
	EgresosFisicos    decimal.Decimal `json:"egresos_fisicos"`
	IngresosDigitales decimal.Decimal `json:"ingresos_digitales"`
	EgresosDigitales  decimal.Decimal `json:"egresos_digitales"`
}

// Calcular folds the non-voided movements of a session into a Balance.
//
//	fisico  = montoApertura + ingresos físicos − egresos físicos
//	digital = ingresos digitales − egresos digitales
//
// All arithmetic is exact decimal; insertion order of movements is irrelevant.
func Calcular(montoApertura decimal.Decimal, movs []model.Movimiento) Balance {
	b := Balance{
		IngresosFisicos:   decimal.Zero,
		EgresosFisicos:    decimal.Zero,
		IngresosDigitales: decimal.Zero,
		EgresosDigitales:  decimal.Zero,
	}

	for _, m := range movs {
		if m.Anulado {
			continue
		}
		switch {
		case m.AfectaBalanceFisico && m.Categoria == model.CategoriaIngreso:
			b.IngresosFisicos = b.IngresosFisicos.Add(m.Monto)
		case m.AfectaBalanceFisico && m.Categoria == model.CategoriaEgreso:
			b.EgresosFisicos = b.EgresosFisicos.Add(m.Monto)
		case m.Categoria == model.CategoriaIngreso:
			b.IngresosDigitales = b.IngresosDigitales.Add(m.Monto)
		case m.Categoria == model.CategoriaEgreso:
			b.EgresosDigitales = b.EgresosDigitales.Add(m.Monto)
		}
	}

	b.Fisico = montoApertura.Add(b.IngresosFisicos).Sub(b.EgresosFisicos)
	b.Digital = b.IngresosDigitales.Sub(b.EgresosDigitales)
	b.Total = b.Fisico.Add(b.Digital)
	return b
}
