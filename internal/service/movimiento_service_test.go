package service

import (
	"context"
	"testing"

	"cajacancha/internal/dto"
	"cajacancha/internal/ledger"
	"cajacancha/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrarMovimiento(t *testing.T, svc MovimientoService, sesionID uuid.UUID, metodo string) *dto.MovimientoResponse {
	t.Helper()
	resp, err := svc.Registrar(context.Background(), uuid.New(), dto.MovimientoRequest{
		SesionCajaID: sesionID.String(),
		Categoria:    model.CategoriaIngreso,
		MetodoPago:   metodo,
		Monto:        decimal.RequireFromString("250.00"),
		Concepto:     "alquiler cancha 5",
	})
	require.NoError(t, err)
	return resp
}

func TestRegistrarMovimientoDerivaBalanceFisico(t *testing.T) {
	repo := newFakeCajaRepo()
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	svc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")

	efectivo := registrarMovimiento(t, svc, sesionID, model.MetodoEfectivo)
	assert.True(t, efectivo.AfectaBalanceFisico)

	transferencia := registrarMovimiento(t, svc, sesionID, model.MetodoTransferencia)
	assert.False(t, transferencia.AfectaBalanceFisico)

	billetera := registrarMovimiento(t, svc, sesionID, model.MetodoBilletera)
	assert.False(t, billetera.AfectaBalanceFisico)
}

func TestRegistrarMovimientoSesionCerrada(t *testing.T) {
	repo := newFakeCajaRepo()
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	svc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")
	_, err := cajaSvc.Cerrar(context.Background(), uuid.New(), dto.CerrarCajaRequest{
		SesionCajaID:       sesionID.String(),
		MontoContadoFisico: decimal.Zero,
	})
	require.NoError(t, err)

	_, err = svc.Registrar(context.Background(), uuid.New(), dto.MovimientoRequest{
		SesionCajaID: sesionID.String(),
		Categoria:    model.CategoriaIngreso,
		MetodoPago:   model.MetodoEfectivo,
		Monto:        decimal.RequireFromString("10.00"),
		Concepto:     "venta de bebidas",
	})
	assert.ErrorIs(t, err, ledger.ErrCajaCerrada)
}

func TestRegistrarMovimientoMontoInvalido(t *testing.T) {
	repo := newFakeCajaRepo()
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	svc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")

	// 10.005 excede la escala de dos decimales de las columnas de dinero.
	for _, monto := range []string{"0.00", "-15.00", "10.005"} {
		_, err := svc.Registrar(context.Background(), uuid.New(), dto.MovimientoRequest{
			SesionCajaID: sesionID.String(),
			Categoria:    model.CategoriaEgreso,
			MetodoPago:   model.MetodoEfectivo,
			Monto:        decimal.RequireFromString(monto),
			Concepto:     "prueba",
		})
		assert.True(t, ledger.EsValidacion(err), "monto %s", monto)
	}
}

func TestAnularMovimiento(t *testing.T) {
	repo := newFakeCajaRepo()
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	svc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")
	mov := registrarMovimiento(t, svc, sesionID, model.MetodoEfectivo)
	movID, _ := uuid.Parse(mov.ID)
	supervisor := uuid.New()

	resp, err := svc.Anular(context.Background(), supervisor, movID, dto.AnularMovimientoRequest{
		Motivo: "monto cargado dos veces",
	})
	require.NoError(t, err)
	assert.True(t, resp.Anulado)
	require.NotNil(t, resp.MotivoAnulacion)
	assert.Equal(t, "monto cargado dos veces", *resp.MotivoAnulacion)
	assert.NotNil(t, resp.AnuladoEn)

	// La anulación es un flag, nunca un DELETE: el movimiento sigue listado.
	movs, err := svc.Listar(context.Background(), sesionID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.True(t, movs[0].Anulado)
}

func TestAnularMovimientoDobleAnulacion(t *testing.T) {
	repo := newFakeCajaRepo()
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	svc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")
	mov := registrarMovimiento(t, svc, sesionID, model.MetodoEfectivo)
	movID, _ := uuid.Parse(mov.ID)

	_, err := svc.Anular(context.Background(), uuid.New(), movID, dto.AnularMovimientoRequest{
		Motivo: "monto cargado dos veces",
	})
	require.NoError(t, err)
	_, err = svc.Anular(context.Background(), uuid.New(), movID, dto.AnularMovimientoRequest{
		Motivo: "segunda anulación del mismo registro",
	})
	assert.ErrorIs(t, err, ledger.ErrYaAnulado)
}

func TestAnularMovimientoMotivoCorto(t *testing.T) {
	repo := newFakeCajaRepo()
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	svc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")
	mov := registrarMovimiento(t, svc, sesionID, model.MetodoEfectivo)
	movID, _ := uuid.Parse(mov.ID)

	_, err := svc.Anular(context.Background(), uuid.New(), movID, dto.AnularMovimientoRequest{
		Motivo: "error    ", // 5 caracteres útiles
	})
	assert.True(t, ledger.EsValidacion(err))
}

func TestAnularMovimientoDigitalRechazado(t *testing.T) {
	repo := newFakeCajaRepo()
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	svc := NewMovimientoService(repo)
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")
	mov := registrarMovimiento(t, svc, sesionID, model.MetodoTransferencia)
	movID, _ := uuid.Parse(mov.ID)

	_, err := svc.Anular(context.Background(), uuid.New(), movID, dto.AnularMovimientoRequest{
		Motivo: "transferencia mal registrada",
	})
	assert.True(t, ledger.EsValidacion(err))
}

func TestAnularMovimientoDePagoRechazado(t *testing.T) {
	repo := newFakeCajaRepo()
	svc := NewMovimientoService(repo)
	cajaSvc := NewCajaService(repo, nil, nil, "", "")
	sesionID := abrirSesion(t, cajaSvc, 1, "0.00")

	// Movimiento generado por una transacción de pago: anulación manual
	// bloqueada, solo se revierte anulando la transacción.
	transID := uuid.New()
	mov := &model.Movimiento{
		ID:            uuid.New(),
		SesionCajaID:  sesionID,
		Categoria:     model.CategoriaIngreso,
		MetodoPago:    model.MetodoEfectivo,
		Monto:         decimal.RequireFromString("100.00"),
		Concepto:      "Pago cancha 1 - Los Pumas",
		RegistradoPor: uuid.New(),
		TransaccionID: &transID,
	}
	require.NoError(t, svc.RegistrarTx(nil, mov))

	_, err := svc.Anular(context.Background(), uuid.New(), mov.ID, dto.AnularMovimientoRequest{
		Motivo: "se equivocó el cajero",
	})
	assert.True(t, ledger.EsValidacion(err))
}
