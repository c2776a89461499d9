// Package ledger holds the domain rules shared by the caja services and the
// repositories: the error taxonomy every operation reports through, and the
// balance calculator. It has no dependencies on storage or transport.
package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors — callers branch with errors.Is, handlers map them to
// HTTP statuses. Repositories translate storage failures into these before
// they cross the repository boundary.
var (
	// ErrNoEncontrado — the id does not resolve to a record.
	ErrNoEncontrado = errors.New("registro no encontrado")
	// ErrCajaYaAbierta — an open session already exists for the punto de venta.
	ErrCajaYaAbierta = errors.New("ya existe una caja abierta en este punto de venta")
	// ErrCajaCerrada — the session was already closed; the state machine has no reopen.
	ErrCajaCerrada = errors.New("la sesión de caja ya está cerrada")
	// ErrSinCajaAbierta — the operation needs an open session. Recoverable:
	// the caller opens a session and retries; nothing here auto-opens one.
	ErrSinCajaAbierta = errors.New("no hay sesión de caja abierta")
	// ErrYaAnulado — the movement or transaction is already voided. A second
	// void fails explicitly so callers can tell "already done" from "just did it".
	ErrYaAnulado = errors.New("el registro ya está anulado")
	// ErrSobrepago — the payment amount exceeds the due's pending balance.
	ErrSobrepago = errors.New("el monto excede el saldo pendiente del pago")
	// ErrAlmacenamiento — storage/transaction failure, surfaced as-is and
	// never retried internally: a financial write must not be silently duplicated.
	ErrAlmacenamiento = errors.New("almacenamiento no disponible")
)

// MotivoMinimo is the minimum void-reason length. The presentation layer
// enforces the same rule; the engine re-validates it.
const MotivoMinimo = 10

// ErrValidacion reports a bad input shape or range (monto ≤ 0, motivo too
// short, unknown método, …).
type ErrValidacion struct {
	Detalle string
}

func (e *ErrValidacion) Error() string { return e.Detalle }

// Validacion builds an *ErrValidacion with a formatted detail message.
func Validacion(format string, args ...interface{}) error {
	return &ErrValidacion{Detalle: fmt.Sprintf(format, args...)}
}

// EsValidacion reports whether err is (or wraps) a validation error.
func EsValidacion(err error) bool {
	var ev *ErrValidacion
	return errors.As(err, &ev)
}
