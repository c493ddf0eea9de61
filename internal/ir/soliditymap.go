package ir

import (
	"regexp"
	"strconv"
)

var intTypeRe = regexp.MustCompile(`^(u?int)(\d+)$`)

// SQLTypeForSolidity is the authoritative solidity -> sql_type mapping
// table from spec.md §4.2. The AI's suggestion for column_type is always
// overridden with this result before an event IR is persisted.
func SQLTypeForSolidity(solidityType string) string {
	switch {
	case solidityType == "address":
		return "VARCHAR(42)"
	case solidityType == "bool":
		return "BOOLEAN"
	case solidityType == "string":
		return "TEXT"
	case len(solidityType) >= 5 && solidityType[:5] == "bytes":
		return "TEXT"
	}

	if m := intTypeRe.FindStringSubmatch(solidityType); m != nil {
		bits, err := strconv.Atoi(m[2])
		if err == nil {
			isUnsigned := m[1] == "uint"
			switch {
			case bits <= 64 && !isUnsigned:
				return "BIGINT"
			case bits <= 64 && isUnsigned:
				return "NUMERIC(20,0)"
			case bits >= 128:
				return "NUMERIC(78,0)"
			}
		}
	}

	// Fallback for anything outside the known table: widest safe bucket.
	return "NUMERIC(78,0)"
}
