package infra

import (
	"fmt"

	"cajacancha/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate on
// the full model set, then applies the idempotent SQL patches GORM cannot
// express (partial indexes). TranslateError is on so the repositories can map
// driver unique violations to gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.SesionCaja{},
		&model.Movimiento{},
		&model.PagoCancha{},
		&model.Transaccion{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open session per register. The WHERE clause keeps any
		// number of closed sessions for the same punto_de_venta while two
		// concurrent opens collide on the index, not on a read-check race.
		{"partial unique index on open sessions",
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_sesiones_caja_abierta
			     ON sesiones_caja (punto_de_venta)
			     WHERE estado = 'abierta'`},
		// Session report query: movements in insertion order.
		{"movimientos listing index",
			`CREATE INDEX IF NOT EXISTS idx_movimientos_sesion_created
			     ON movimientos (sesion_caja_id, created_at)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
