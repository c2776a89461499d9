package infra

// Closing-report PDF generation using go-pdf/fpdf. One A4 page per session:
// venue header, session data, expected vs counted physical cash with the
// difference classification, digital totals, and the full movement listing
// (voided rows included, struck through by label).

import (
	"fmt"
	"os"
	"path/filepath"

	"cajacancha/internal/ledger"
	"cajacancha/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateCierrePDF renders the closing report of a closed session.
// storagePath is the directory where the PDF is written (created if needed).
// Returns the absolute path to the generated file.
func GenerateCierrePDF(sesion *model.SesionCaja, balance ledger.Balance, movs []model.Movimiento, venueName, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("cierre_%s.pdf", sesion.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, venueName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, "Reporte de Cierre de Caja", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Session data ─────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	linea := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(55, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW-55, 6, value, "", 1, "L", false, 0, "")
	}
	linea("Punto de venta:", fmt.Sprintf("%d", sesion.PuntoDeVenta))
	linea("Fecha:", sesion.Fecha.Format("02/01/2006"))
	if sesion.Turno != nil {
		linea("Turno:", *sesion.Turno)
	}
	linea("Apertura:", sesion.OpenedAt.Format("02/01/2006 15:04"))
	if sesion.ClosedAt != nil {
		linea("Cierre:", sesion.ClosedAt.Format("02/01/2006 15:04"))
	}
	pdf.Ln(3)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Arqueo ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "Arqueo de efectivo", "", 1, "L", false, 0, "")
	monto := func(label string, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW*0.6, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(contentW*0.4, 6, value, "", 1, "R", false, 0, "")
	}
	monto("Monto de apertura", "$"+sesion.MontoApertura.StringFixed(2), false)
	monto("Ingresos en efectivo", "$"+balance.IngresosFisicos.StringFixed(2), false)
	monto("Egresos en efectivo", "-$"+balance.EgresosFisicos.StringFixed(2), false)
	monto("Esperado en caja", "$"+balance.Fisico.StringFixed(2), true)
	if sesion.MontoCierreFisico != nil {
		monto("Contado al cierre", "$"+sesion.MontoCierreFisico.StringFixed(2), true)
	}
	if sesion.Diferencia != nil {
		descr := "$" + sesion.Diferencia.StringFixed(2)
		if sesion.ClasificacionDiferencia != nil {
			descr += " (" + *sesion.ClasificacionDiferencia + ")"
		}
		monto("Diferencia", descr, true)
	}
	pdf.Ln(2)

	// ── Digital ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "Movimientos digitales", "", 1, "L", false, 0, "")
	monto("Ingresos digitales", "$"+balance.IngresosDigitales.StringFixed(2), false)
	monto("Egresos digitales", "-$"+balance.EgresosDigitales.StringFixed(2), false)
	monto("Balance digital", "$"+balance.Digital.StringFixed(2), true)
	monto("Balance total de la sesión", "$"+balance.Total.StringFixed(2), true)
	pdf.Ln(3)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Movement listing ─────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, fmt.Sprintf("Movimientos (%d)", len(movs)), "", 1, "L", false, 0, "")

	col1 := contentW * 0.14 // hora
	col2 := contentW * 0.12 // categoria
	col3 := contentW * 0.16 // metodo
	col4 := contentW * 0.40 // concepto
	col5 := contentW * 0.18 // monto

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 6, "Hora", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Tipo", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Método", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 6, "Concepto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col5, 6, "Monto", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for i := range movs {
		m := &movs[i]
		concepto := m.Concepto
		if len(concepto) > 40 {
			concepto = concepto[:39] + "…"
		}
		montoStr := "$" + m.Monto.StringFixed(2)
		if m.Categoria == model.CategoriaEgreso {
			montoStr = "-" + montoStr
		}
		if m.Anulado {
			concepto = "[ANULADO] " + concepto
		}
		pdf.CellFormat(col1, 5, m.CreatedAt.Format("15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, m.Categoria, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, m.MetodoPago, "", 0, "L", false, 0, "")
		pdf.CellFormat(col4, 5, concepto, "", 0, "L", false, 0, "")
		pdf.CellFormat(col5, 5, montoStr, "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
