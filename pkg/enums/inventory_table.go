package enums

import "fmt"

// InventoryTable names the two stock ledgers medicines live in.
type InventoryTable string

const (
	InventoryMaster   InventoryTable = "master"
	InventoryPharmacy InventoryTable = "pharmacy"
)

var validInventoryTables = []InventoryTable{
	InventoryMaster,
	InventoryPharmacy,
}

// String implements fmt.Stringer.
func (t InventoryTable) String() string {
	return string(t)
}

// IsValid reports whether the value is a known InventoryTable.
func (t InventoryTable) IsValid() bool {
	for _, candidate := range validInventoryTables {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTable converts raw input into an InventoryTable.
func ParseInventoryTable(value string) (InventoryTable, error) {
	for _, candidate := range validInventoryTables {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory table %q", value)
}
