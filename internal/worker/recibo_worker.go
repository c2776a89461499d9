package worker

// Receipt worker. Emails a plain-text payment receipt to the due's contact
// address after a transaction is registered. Dues without a contact email
// are a silent no-op.

import (
	"context"
	"encoding/json"
	"fmt"

	"cajacancha/internal/infra"
	"cajacancha/internal/model"
	"cajacancha/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReciboWorker processes receipt jobs from QueueRecibo.
type ReciboWorker struct {
	pagos     repository.PagoRepository
	mailer    *infra.Mailer
	cb        *infra.CircuitBreaker
	venueName string
}

func NewReciboWorker(pagos repository.PagoRepository, mailer *infra.Mailer, cb *infra.CircuitBreaker, venueName string) *ReciboWorker {
	return &ReciboWorker{pagos: pagos, mailer: mailer, cb: cb, venueName: venueName}
}

func (w *ReciboWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReciboJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("recibo_worker: invalid payload")
		return nil
	}
	pagoID, err := uuid.Parse(payload.PagoID)
	if err != nil {
		log.Error().Str("pago_id", payload.PagoID).Msg("recibo_worker: invalid pago_id")
		return nil
	}

	pago, err := w.pagos.FindByID(ctx, pagoID)
	if err != nil {
		return fmt.Errorf("recibo_worker: load pago %s: %w", payload.PagoID, err)
	}
	if pago.EmailContacto == nil || *pago.EmailContacto == "" {
		return nil
	}

	var trans *model.Transaccion
	for i := range pago.Transacciones {
		if pago.Transacciones[i].ID.String() == payload.TransaccionID {
			trans = &pago.Transacciones[i]
			break
		}
	}
	if trans == nil {
		log.Warn().Str("transaccion_id", payload.TransaccionID).Msg("recibo_worker: transaccion not found on pago")
		return nil
	}
	if trans.Anulada {
		// Voided before the receipt went out, nothing to confirm.
		return nil
	}

	subject := fmt.Sprintf("%s: recibo de pago", w.venueName)
	body := fmt.Sprintf(
		"Hola %s,\n\nRegistramos un pago por la cancha %d (turno %s).\n\nMonto abonado: $%s (%s)\nTotal pagado: $%s de $%s\nSaldo pendiente: $%s\n\nGracias.",
		pago.Equipo,
		pago.Cancha,
		pago.FechaTurno.Format("02/01/2006 15:04"),
		trans.Monto.StringFixed(2),
		trans.Metodo,
		pago.MontoPagado.StringFixed(2),
		pago.MontoTotal.StringFixed(2),
		pago.MontoPendiente().StringFixed(2),
	)

	err = w.cb.Execute(func() error {
		return w.mailer.Send(*pago.EmailContacto, subject, body, "")
	})
	if err != nil {
		return fmt.Errorf("recibo_worker: send email: %w", err)
	}
	log.Info().Str("pago_id", payload.PagoID).Str("to", *pago.EmailContacto).Msg("recibo_worker: receipt emailed")
	return nil
}
