package persistence

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gestion/settlement/internal/domain/shared"
)

// SchemaVersion identifies the legacy table contract this build was written
// against. Bump it whenever requiredTables changes.
const SchemaVersion = 1

type tableContract struct {
	name    string
	columns []string
}

// requiredTables is the minimum shape the ledger database must expose.
// Missing tables or columns abort startup; the engine never guesses at a
// degraded schema.
var requiredTables = []tableContract{
	{"compras", []string{"compra", "proveedor", "total", "fecha"}},
	{"it_comp", []string{"remito", "articulo", "cant", "costo", "precio"}},
	{"ventas", []string{"remito", "cliente", "total", "fecha", "giros"}},
	{"it_vent", []string{"remito", "articulo", "cant", "costo", "venta"}},
	{"codigos", []string{"codigo", "articulo", "deposito", "remito_ven"}},
	{"paramet", []string{"ventas", "compras"}},
	{"articulos", []string{"codigo", "descrip"}},
	{"envios_flex", []string{"remito", "fecha", "motoquero", "costo_de_envio", "cobro_de_envio", "ganancia"}},
	{"kits_armados", []string{"codigo", "componente", "cantidad", "participacion"}},
}

const createMovimientosMP = `CREATE TABLE IF NOT EXISTS movimientos_mp (
	Orden TEXT,
	movimiento TEXT,
	fecha TEXT,
	importe REAL,
	remito_venta INTEGER,
	usuario_ml TEXT
)`

// VerifySchema checks the legacy database against the versioned table
// contract and bootstraps movimientos_mp, the only table this engine owns.
func (d *Database) VerifySchema(log *zap.Logger) error {
	for _, table := range requiredTables {
		ok, err := d.hasTable(table.name)
		if err != nil {
			return fmt.Errorf("%w: checking table %s: %v", shared.ErrInfrastructure, table.name, err)
		}
		if !ok {
			return fmt.Errorf("%w: missing table %s (contract v%d)", shared.ErrSchemaMismatch, table.name, SchemaVersion)
		}

		present, err := d.tableColumns(table.name)
		if err != nil {
			return fmt.Errorf("%w: reading columns of %s: %v", shared.ErrInfrastructure, table.name, err)
		}
		for _, col := range table.columns {
			if !present[strings.ToLower(col)] {
				return fmt.Errorf("%w: table %s missing column %s (contract v%d)",
					shared.ErrSchemaMismatch, table.name, col, SchemaVersion)
			}
		}
	}

	if err := d.DB.Exec(createMovimientosMP).Error; err != nil {
		return fmt.Errorf("%w: creating movimientos_mp: %v", shared.ErrInfrastructure, err)
	}

	log.Info("schema verified",
		zap.Int("contract_version", SchemaVersion),
		zap.Int("tables", len(requiredTables)))
	return nil
}

func (d *Database) hasTable(name string) (bool, error) {
	var count int64
	err := d.DB.Raw(
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *Database) tableColumns(table string) (map[string]bool, error) {
	var names []string
	err := d.DB.Raw(fmt.Sprintf("SELECT name FROM pragma_table_info(%s)", quoteLiteral(table))).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[strings.ToLower(n)] = true
	}
	return cols, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
