package worker

// Closing-report worker. For each closed session it regenerates the balance
// from the movement set, renders the PDF and, when the close requested it,
// emails the report. SMTP goes through the circuit breaker so a dead mail
// server fails the job fast and the retry/DLQ machinery takes over.

import (
	"context"
	"encoding/json"
	"fmt"

	"cajacancha/internal/infra"
	"cajacancha/internal/ledger"
	"cajacancha/internal/model"
	"cajacancha/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CierreWorker processes closing-report jobs from QueueCierre.
type CierreWorker struct {
	repo           repository.CajaRepository
	mailer         *infra.Mailer
	cb             *infra.CircuitBreaker
	pdfStoragePath string
	venueName      string
}

func NewCierreWorker(repo repository.CajaRepository, mailer *infra.Mailer, cb *infra.CircuitBreaker, pdfStoragePath, venueName string) *CierreWorker {
	return &CierreWorker{
		repo:           repo,
		mailer:         mailer,
		cb:             cb,
		pdfStoragePath: pdfStoragePath,
		venueName:      venueName,
	}
}

func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("cierre_worker: invalid payload")
		return nil // malformed payloads never succeed, do not retry
	}
	sesionID, err := uuid.Parse(payload.SesionID)
	if err != nil {
		log.Error().Str("sesion_id", payload.SesionID).Msg("cierre_worker: invalid sesion_id")
		return nil
	}

	sesion, err := w.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return fmt.Errorf("cierre_worker: load sesion %s: %w", payload.SesionID, err)
	}
	if sesion.Estado != model.SesionCerrada {
		log.Warn().Str("sesion_id", payload.SesionID).Msg("cierre_worker: sesion not closed, skipping")
		return nil
	}

	movs, err := w.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return fmt.Errorf("cierre_worker: load movimientos: %w", err)
	}
	balance := ledger.Calcular(sesion.MontoApertura, movs)

	pdfPath, err := infra.GenerateCierrePDF(sesion, balance, movs, w.venueName, w.pdfStoragePath)
	if err != nil {
		return fmt.Errorf("cierre_worker: generate pdf: %w", err)
	}
	log.Info().Str("sesion_id", payload.SesionID).Str("pdf", pdfPath).Msg("cierre_worker: closing report generated")

	if payload.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Cierre de caja PDV %d (%s)", sesion.PuntoDeVenta, sesion.Fecha.Format("02/01/2006"))
	body := fmt.Sprintf(
		"Reporte de cierre de caja.\n\nPunto de venta: %d\nEsperado en caja: $%s\nContado: $%s\nDiferencia: $%s\n\nSe adjunta el reporte completo.",
		sesion.PuntoDeVenta,
		balance.Fisico.StringFixed(2),
		montoOpcional(sesion.MontoCierreFisico),
		montoOpcional(sesion.Diferencia),
	)
	err = w.cb.Execute(func() error {
		return w.mailer.Send(payload.Email, subject, body, pdfPath)
	})
	if err != nil {
		return fmt.Errorf("cierre_worker: send email: %w", err)
	}
	log.Info().Str("sesion_id", payload.SesionID).Str("to", payload.Email).Msg("cierre_worker: report emailed")
	return nil
}

func montoOpcional(d *decimal.Decimal) string {
	if d == nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
