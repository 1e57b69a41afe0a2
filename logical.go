package avro

import (
	"encoding/json"
	"fmt"
)

// LogicalKind identifies which logical type, if any, refines a schema's base
// binary representation.
type LogicalKind int

const (
	NoLogicalType LogicalKind = iota
	Decimal
	UUID
	Date
	TimeMillis
	TimeMicros
	TimestampMillis
	TimestampMicros
	DurationLogical
)

func (k LogicalKind) jsonName() string {
	switch k {
	case Decimal:
		return "decimal"
	case UUID:
		return "uuid"
	case Date:
		return "date"
	case TimeMillis:
		return "time-millis"
	case TimeMicros:
		return "time-micros"
	case TimestampMillis:
		return "timestamp-millis"
	case TimestampMicros:
		return "timestamp-micros"
	case DurationLogical:
		return "duration"
	default:
		return ""
	}
}

// LogicalType is a semantic refinement over a base Avro schema, e.g. decimal
// over bytes/fixed, or date over int.
type LogicalType struct {
	Kind      LogicalKind
	Precision int
	Scale     int
}

// validBase reports whether this logical type is declared to sit over the
// given base Kind (and, for duration, the given fixed size).
func (lt *LogicalType) validBase(base Kind, fixedSize int) bool {
	switch lt.Kind {
	case Decimal:
		return base == Bytes || base == Fixed
	case UUID:
		return base == String
	case Date, TimeMillis:
		return base == Int
	case TimeMicros, TimestampMillis, TimestampMicros:
		return base == Long
	case DurationLogical:
		return base == Fixed && fixedSize == 12
	default:
		return false
	}
}

func logicalKindFromJSON(name string) LogicalKind {
	switch name {
	case "decimal":
		return Decimal
	case "uuid":
		return UUID
	case "date":
		return Date
	case "time-millis":
		return TimeMillis
	case "time-micros":
		return TimeMicros
	case "timestamp-millis":
		return TimestampMillis
	case "timestamp-micros":
		return TimestampMicros
	case "duration":
		return DurationLogical
	default:
		return NoLogicalType
	}
}

// marshalPrimitiveJSON renders a primitive schema as a bare string, or, when
// it carries a logical type, as an object per spec.md §4.3.
func marshalPrimitiveJSON(typeName string, lt *LogicalType) string {
	if lt == nil {
		return fmt.Sprintf("%q", typeName)
	}
	obj := map[string]any{
		"type":        typeName,
		"logicalType": lt.Kind.jsonName(),
	}
	if lt.Kind == Decimal {
		obj["precision"] = lt.Precision
		obj["scale"] = lt.Scale
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Sprintf("%q", typeName)
	}
	return string(b)
}
