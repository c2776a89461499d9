package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cajacancha/internal/dto"
	"cajacancha/internal/ledger"
	"cajacancha/internal/model"
	"cajacancha/internal/repository"
	"cajacancha/internal/worker"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PagoService interface {
	Crear(ctx context.Context, req dto.CrearPagoRequest) (*dto.PagoResponse, error)
	Obtener(ctx context.Context, pagoID uuid.UUID) (*dto.PagoResponse, error)
	Listar(ctx context.Context, req dto.PagoFilterRequest) (*dto.PagoListResponse, error)
	RegistrarTransaccion(ctx context.Context, usuarioID uuid.UUID, pagoID uuid.UUID, req dto.RegistrarTransaccionRequest) (*dto.PagoResponse, error)
	AnularTransaccion(ctx context.Context, usuarioID uuid.UUID, transaccionID uuid.UUID, req dto.AnularTransaccionRequest) (*dto.AnulacionResponse, error)
}

type pagoService struct {
	pagos      repository.PagoRepository
	movs       MovimientoService
	caja       CajaService
	locker     *redislock.Client
	dispatcher *worker.Dispatcher
}

// NewPagoService builds the reconciliation engine. locker and dispatcher may
// be nil (unit tests): the advisory lock and receipt emails are then skipped.
func NewPagoService(pagos repository.PagoRepository, movs MovimientoService, caja CajaService, locker *redislock.Client, dispatcher *worker.Dispatcher) PagoService {
	return &pagoService{pagos: pagos, movs: movs, caja: caja, locker: locker, dispatcher: dispatcher}
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func (s *pagoService) Crear(ctx context.Context, req dto.CrearPagoRequest) (*dto.PagoResponse, error) {
	if !req.MontoTotal.IsPositive() {
		return nil, ledger.Validacion("el monto total debe ser mayor que cero")
	}
	if !ledger.EscalaCentavos(req.MontoTotal) {
		return nil, ledger.Validacion("el monto total no puede tener más de dos decimales")
	}
	fechaTurno, err := time.Parse(time.RFC3339, req.FechaTurno)
	if err != nil {
		return nil, ledger.Validacion("fecha_turno debe ser RFC 3339")
	}

	pago := &model.PagoCancha{
		Equipo:        req.Equipo,
		Cancha:        req.Cancha,
		FechaTurno:    fechaTurno,
		Descripcion:   req.Descripcion,
		EmailContacto: req.EmailContacto,
		MontoTotal:    req.MontoTotal,
		MontoPagado:   decimal.Zero,
		Estado:        model.PagoPendiente,
	}
	if err := s.pagos.Create(ctx, pago); err != nil {
		return nil, err
	}

	log.Info().
		Str("pago_id", pago.ID.String()).
		Str("equipo", pago.Equipo).
		Str("monto_total", pago.MontoTotal.StringFixed(2)).
		Msg("pago de cancha creado")

	resp := pagoToResponse(pago)
	return &resp, nil
}

// ── Lectura ───────────────────────────────────────────────────────────────────

func (s *pagoService) Obtener(ctx context.Context, pagoID uuid.UUID) (*dto.PagoResponse, error) {
	pago, err := s.pagos.FindByID(ctx, pagoID)
	if err != nil {
		return nil, err
	}
	resp := pagoToResponse(pago)
	return &resp, nil
}

func (s *pagoService) Listar(ctx context.Context, req dto.PagoFilterRequest) (*dto.PagoListResponse, error) {
	filter := repository.PagoFilter{
		Estado: req.Estado,
		Page:   req.Page,
		Limit:  req.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if req.Desde != "" {
		t, err := time.Parse("2006-01-02", req.Desde)
		if err != nil {
			return nil, ledger.Validacion("desde debe ser YYYY-MM-DD")
		}
		filter.Desde = &t
	}
	if req.Hasta != "" {
		t, err := time.Parse("2006-01-02", req.Hasta)
		if err != nil {
			return nil, ledger.Validacion("hasta debe ser YYYY-MM-DD")
		}
		filter.Hasta = &t
	}

	pagos, total, err := s.pagos.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.PagoResponse, 0, len(pagos))
	for i := range pagos {
		data = append(data, pagoToResponse(&pagos[i]))
	}
	return &dto.PagoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── RegistrarTransaccion ──────────────────────────────────────────────────────
// One payment is four writes in one transaction: the movement, the
// transaction row pointing at it, and the due's monto_pagado + estado. The
// due row is locked FOR UPDATE so two tills cannot both consume the same
// pending balance; the redis lock in front of it only shortens the window in
// which the second till waits on the row.

func (s *pagoService) RegistrarTransaccion(ctx context.Context, usuarioID uuid.UUID, pagoID uuid.UUID, req dto.RegistrarTransaccionRequest) (*dto.PagoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, ledger.Validacion("el monto debe ser mayor que cero")
	}
	if !ledger.EscalaCentavos(req.Monto) {
		return nil, ledger.Validacion("el monto no puede tener más de dos decimales")
	}
	if err := validarMetadatosMetodo(req); err != nil {
		return nil, err
	}

	sesion, err := s.caja.SesionAbierta(ctx, req.PuntoDeVenta)
	if err != nil {
		return nil, err
	}

	unlock := s.bloquearPago(ctx, pagoID)
	defer unlock()

	now := time.Now()
	movimientoID := uuid.New()
	transaccionID := uuid.New()

	err = runTx(ctx, s.pagos.DB(), func(tx *gorm.DB) error {
		pago, err := s.pagos.FindByIDForUpdateTx(tx, pagoID)
		if err != nil {
			return err
		}
		if req.Monto.GreaterThan(pago.MontoPendiente()) {
			return ledger.ErrSobrepago
		}

		mov := &model.Movimiento{
			ID:            movimientoID,
			SesionCajaID:  sesion.ID,
			Categoria:     model.CategoriaIngreso,
			MetodoPago:    req.Metodo,
			Monto:         req.Monto,
			Concepto:      fmt.Sprintf("Pago cancha %d - %s", pago.Cancha, pago.Equipo),
			RegistradoPor: usuarioID,
			TransaccionID: &transaccionID,
			CreatedAt:     now,
		}
		if err := s.movs.RegistrarTx(tx, mov); err != nil {
			return err
		}

		trans := &model.Transaccion{
			ID:                  transaccionID,
			PagoCanchaID:        pagoID,
			Monto:               req.Monto,
			Metodo:              req.Metodo,
			NumeroOperacion:     req.NumeroOperacion,
			BancoOrigen:         req.BancoOrigen,
			ReferenciaBilletera: req.ReferenciaBilletera,
			Observaciones:       req.Observaciones,
			MovimientoID:        movimientoID,
			RegistradaPor:       usuarioID,
			CreatedAt:           now,
		}
		if err := s.pagos.CreateTransaccionTx(tx, trans); err != nil {
			return err
		}

		pago.MontoPagado = pago.MontoPagado.Add(req.Monto)
		pago.Estado = model.EstadoPago(pago.MontoTotal, pago.MontoPagado)
		return s.pagos.UpdateMontosTx(tx, pago)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("pago_id", pagoID.String()).
		Str("transaccion_id", transaccionID.String()).
		Str("metodo", req.Metodo).
		Str("monto", req.Monto.StringFixed(2)).
		Msg("transacción de pago registrada")

	resultado, err := s.Obtener(ctx, pagoID)
	if err != nil {
		return nil, err
	}
	s.encolarRecibo(ctx, resultado, transaccionID)
	return resultado, nil
}

// validarMetadatosMetodo checks per-method traceability fields: a transfer
// without its operation number cannot be matched against a bank statement.
func validarMetadatosMetodo(req dto.RegistrarTransaccionRequest) error {
	switch req.Metodo {
	case model.MetodoTransferencia:
		if req.NumeroOperacion == nil || strings.TrimSpace(*req.NumeroOperacion) == "" {
			return ledger.Validacion("numero_operacion es obligatorio para transferencias")
		}
	case model.MetodoBilletera:
		if req.ReferenciaBilletera == nil || strings.TrimSpace(*req.ReferenciaBilletera) == "" {
			return ledger.Validacion("referencia_billetera es obligatoria para pagos con billetera")
		}
	}
	return nil
}

// ── AnularTransaccion ─────────────────────────────────────────────────────────
// Full reversal only: the transaction and its movement are voided and the
// due's monto_pagado is decremented by the exact original amount, all inside
// one storage transaction. The guarded UPDATE on the transaction row makes a
// concurrent double-void lose with ErrYaAnulado.

func (s *pagoService) AnularTransaccion(ctx context.Context, usuarioID uuid.UUID, transaccionID uuid.UUID, req dto.AnularTransaccionRequest) (*dto.AnulacionResponse, error) {
	motivo := strings.TrimSpace(req.Motivo)
	if len(motivo) < ledger.MotivoMinimo {
		return nil, ledger.Validacion("el motivo debe tener al menos %d caracteres", ledger.MotivoMinimo)
	}

	trans, err := s.pagos.FindTransaccionByID(ctx, transaccionID)
	if err != nil {
		return nil, err
	}
	if trans.Anulada {
		return nil, ledger.ErrYaAnulado
	}

	unlock := s.bloquearPago(ctx, trans.PagoCanchaID)
	defer unlock()

	var resp dto.AnulacionResponse
	now := time.Now()

	err = runTx(ctx, s.pagos.DB(), func(tx *gorm.DB) error {
		pago, err := s.pagos.FindByIDForUpdateTx(tx, trans.PagoCanchaID)
		if err != nil {
			return err
		}

		marca := &model.Transaccion{
			ID:              transaccionID,
			MotivoAnulacion: &motivo,
			AnuladaEn:       &now,
			AnuladaPor:      &usuarioID,
		}
		if err := s.pagos.MarcarTransaccionAnuladaTx(tx, marca); err != nil {
			return err
		}
		if err := s.movs.AnularTx(tx, trans.MovimientoID, motivo, usuarioID); err != nil {
			return err
		}

		pago.MontoPagado = pago.MontoPagado.Sub(trans.Monto)
		pago.Estado = model.EstadoPago(pago.MontoTotal, pago.MontoPagado)
		if err := s.pagos.UpdateMontosTx(tx, pago); err != nil {
			return err
		}

		resp = dto.AnulacionResponse{
			TransaccionID:  transaccionID.String(),
			MovimientoID:   trans.MovimientoID.String(),
			PagoCanchaID:   pago.ID.String(),
			MontoRevertido: trans.Monto,
			MontoPagado:    pago.MontoPagado,
			MontoPendiente: pago.MontoPendiente(),
			Estado:         pago.Estado,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaccion_id", transaccionID.String()).
		Str("pago_id", trans.PagoCanchaID.String()).
		Str("monto_revertido", trans.Monto.StringFixed(2)).
		Str("anulado_por", usuarioID.String()).
		Msg("transacción de pago anulada")

	return &resp, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// runTx wraps fn in a storage transaction. A nil db runs fn directly, which
// is what the in-memory test doubles rely on.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

const lockPagoTTL = 5 * time.Second

// bloquearPago takes a best-effort advisory lock on the due. Correctness
// comes from the FOR UPDATE row lock; this one exists so a second concurrent
// request fails fast instead of queueing on the row.
func (s *pagoService) bloquearPago(ctx context.Context, pagoID uuid.UUID) func() {
	if s.locker == nil {
		return func() {}
	}
	lock, err := s.locker.Obtain(ctx, "lock:pago:"+pagoID.String(), lockPagoTTL, nil)
	if err != nil {
		log.Warn().Err(err).Str("pago_id", pagoID.String()).Msg("no se pudo obtener el lock de pago")
		return func() {}
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && err != redislock.ErrLockNotHeld {
			log.Warn().Err(err).Str("pago_id", pagoID.String()).Msg("no se pudo liberar el lock de pago")
		}
	}
}

func (s *pagoService) encolarRecibo(ctx context.Context, pago *dto.PagoResponse, transaccionID uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueRecibo(ctx, worker.ReciboJobPayload{
		PagoID:        pago.ID,
		TransaccionID: transaccionID.String(),
	}); err != nil {
		log.Warn().Err(err).Str("pago_id", pago.ID).Msg("no se pudo encolar el recibo de pago")
	}
}

func pagoToResponse(p *model.PagoCancha) dto.PagoResponse {
	resp := dto.PagoResponse{
		ID:             p.ID.String(),
		Equipo:         p.Equipo,
		Cancha:         p.Cancha,
		FechaTurno:     p.FechaTurno.UTC().Format(time.RFC3339),
		Descripcion:    p.Descripcion,
		MontoTotal:     p.MontoTotal,
		MontoPagado:    p.MontoPagado,
		MontoPendiente: p.MontoPendiente(),
		Estado:         p.Estado,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	for i := range p.Transacciones {
		resp.Transacciones = append(resp.Transacciones, transaccionToResponse(&p.Transacciones[i]))
	}
	return resp
}

func transaccionToResponse(t *model.Transaccion) dto.TransaccionResponse {
	return dto.TransaccionResponse{
		ID:                  t.ID.String(),
		PagoCanchaID:        t.PagoCanchaID.String(),
		Monto:               t.Monto,
		Metodo:              t.Metodo,
		NumeroOperacion:     t.NumeroOperacion,
		BancoOrigen:         t.BancoOrigen,
		ReferenciaBilletera: t.ReferenciaBilletera,
		Observaciones:       t.Observaciones,
		MovimientoID:        t.MovimientoID.String(),
		Anulada:             t.Anulada,
		MotivoAnulacion:     t.MotivoAnulacion,
		CreatedAt:           t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
