package config

// Version is reported by `irslots -version`.
const Version = "0.3.0"

const LayoutFileExt = ".yaml"

// LayoutFileNames are the file names FindDocument looks for, in order
var LayoutFileNames = []string{"slots.yaml", "slots.yml"}

// IsTestMode indicates if the program is running in test mode.
// This is set once at startup from IRSLOTS_TEST_MODE.
var IsTestMode = false

// Slot naming
const (
	LocalVarPrefix       = "vloc_"
	ExpressionPrefix     = "expr_"
	SlotSeparator        = "_"
	TupleComponentPrefix = "component_"
)

// MaxLayoutDepth bounds recursive descent into a type's stack items.
// Real surface types never come close; hitting it means the layout is cyclic.
const MaxLayoutDepth = 64

// MaxStackItems bounds the number of stack items a layout expands to,
// counted over all nesting levels. Layouts arriving over the network are
// checked against it before any name is built.
const MaxStackItems = 1 << 16

// Default scalar type names available in every layout document
var DefaultScalars = []string{
	"bool",
	"address",
	"uint8",
	"uint256",
	"int256",
	"bytes32",
}

// Stack item names used by built-in composite layouts
const (
	SliceOffsetItem      = "offset"
	SliceLengthItem      = "length"
	FuncAddressItem      = "address"
	FuncSelectorItem     = "functionSelector"
	FuncIdentifierItem   = "functionIdentifier"
	PlaceholderComponent = "_"
)

// Scalar types of the slots behind the built-in item names
const (
	SliceItemType      = "uint256"
	FuncAddressType    = "address"
	FuncSelectorType   = "bytes4"
	FuncIdentifierType = "uint256"
)

// Tooling defaults
const (
	DefaultSnapshotDB  = "irslots.db"
	DefaultServiceAddr = "127.0.0.1:7711"
	TestModeEnv        = "IRSLOTS_TEST_MODE"
)
