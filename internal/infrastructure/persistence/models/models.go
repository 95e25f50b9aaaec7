// Package models maps the fixed-shape legacy tables. Column names are part
// of the schema contract and never renamed.
package models

import (
	"github.com/shopspring/decimal"
)

// Compra is a purchase document header (legacy table `compras`).
type Compra struct {
	Compra    int             `gorm:"column:compra;primaryKey"`
	Proveedor string          `gorm:"column:proveedor"`
	Total     decimal.Decimal `gorm:"column:total"`
	Fecha     string          `gorm:"column:fecha"`
}

func (Compra) TableName() string { return "compras" }

// ItComp is one purchase line (legacy table `it_comp`). Remito references
// compras.compra.
type ItComp struct {
	Remito   int             `gorm:"column:remito"`
	Articulo string          `gorm:"column:articulo"`
	Cant     int             `gorm:"column:cant"`
	Costo    decimal.Decimal `gorm:"column:costo"`
	Precio   decimal.Decimal `gorm:"column:precio"`
}

func (ItComp) TableName() string { return "it_comp" }

// Venta is a sale document header (legacy table `ventas`). Giros carries
// the bank-transfer amount of the marketplace flow.
type Venta struct {
	Remito  int             `gorm:"column:remito;primaryKey"`
	Cliente string          `gorm:"column:cliente"`
	Total   decimal.Decimal `gorm:"column:total"`
	Fecha   string          `gorm:"column:fecha"`
	Giros   decimal.Decimal `gorm:"column:giros"`
}

func (Venta) TableName() string { return "ventas" }

// ItVent is one sale line (legacy table `it_vent`). A row with costo <= 0
// must never be committed.
type ItVent struct {
	Remito   int             `gorm:"column:remito"`
	Articulo string          `gorm:"column:articulo"`
	Cant     int             `gorm:"column:cant"`
	Costo    decimal.Decimal `gorm:"column:costo"`
	Venta    decimal.Decimal `gorm:"column:venta"`
}

func (ItVent) TableName() string { return "it_vent" }

// Codigo is one serialized inventory unit (legacy table `codigos`). A code
// is free when it sits in deposit and remito_ven is null, empty or '0'.
type Codigo struct {
	Codigo    string `gorm:"column:codigo;primaryKey"`
	Articulo  string `gorm:"column:articulo"`
	Deposito  string `gorm:"column:deposito"`
	RemitoVen string `gorm:"column:remito_ven"`
}

func (Codigo) TableName() string { return "codigos" }

// Paramet is the single-row document counter table.
type Paramet struct {
	Ventas  int `gorm:"column:ventas"`
	Compras int `gorm:"column:compras"`
}

func (Paramet) TableName() string { return "paramet" }

// MovimientoMP links a marketplace payment to a committed sale (legacy
// table `movimientos_mp`; the one table bootstrapped on demand).
type MovimientoMP struct {
	Orden       string  `gorm:"column:Orden"`
	Movimiento  string  `gorm:"column:movimiento"`
	Fecha       string  `gorm:"column:fecha"`
	Importe     float64 `gorm:"column:importe"`
	RemitoVenta int     `gorm:"column:remito_venta"`
	UsuarioML   string  `gorm:"column:usuario_ml"`
}

func (MovimientoMP) TableName() string { return "movimientos_mp" }

// EnvioFlex records the courier economics of a self-managed delivery
// (legacy table `envios_flex`).
type EnvioFlex struct {
	Remito       int             `gorm:"column:remito"`
	Fecha        string          `gorm:"column:fecha"`
	Motoquero    string          `gorm:"column:motoquero"`
	CostoDeEnvio decimal.Decimal `gorm:"column:costo_de_envio"`
	CobroDeEnvio decimal.Decimal `gorm:"column:cobro_de_envio"`
	Ganancia     decimal.Decimal `gorm:"column:ganancia"`
}

func (EnvioFlex) TableName() string { return "envios_flex" }

// Articulo is the product master row (legacy table `articulos`).
type Articulo struct {
	Codigo  string `gorm:"column:codigo;primaryKey"`
	Descrip string `gorm:"column:descrip"`
}

func (Articulo) TableName() string { return "articulos" }

// KitComponente is one component row of an assembled kit (legacy table
// `kits_armados`).
type KitComponente struct {
	Codigo        string  `gorm:"column:codigo"`
	Componente    string  `gorm:"column:componente"`
	Cantidad      int     `gorm:"column:cantidad"`
	Participacion float64 `gorm:"column:participacion"`
}

func (KitComponente) TableName() string { return "kits_armados" }
