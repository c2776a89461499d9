package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cajacancha/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{ledger.Validacion("monto inválido"), http.StatusUnprocessableEntity},
		{ledger.ErrSobrepago, http.StatusUnprocessableEntity},
		{ledger.ErrNoEncontrado, http.StatusNotFound},
		{ledger.ErrCajaYaAbierta, http.StatusConflict},
		{ledger.ErrCajaCerrada, http.StatusConflict},
		{ledger.ErrSinCajaAbierta, http.StatusConflict},
		{ledger.ErrYaAnulado, http.StatusConflict},
		{fmt.Errorf("%w: conexión rechazada", ledger.ErrAlmacenamiento), http.StatusServiceUnavailable},
		{errors.New("algo inesperado"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
	}
}

// Wrapped sentinels must keep their mapping: repositories decorate storage
// errors with context before they reach the handlers.
func TestRespondErrorWrapped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, fmt.Errorf("al cerrar la sesión: %w", ledger.ErrCajaCerrada))
	assert.Equal(t, http.StatusConflict, w.Code)
}
