package metadata

import (
	"github.com/zodata/odata-serve/internal/odata"
	"github.com/zodata/odata-serve/internal/tabular"
)

// ToEdmType maps a physical column type onto its OData v3 EDM primitive.
// There is no unsigned or 8-bit family in EDM, so those widen to the
// nearest signed type. Types without a primitive representation return
// UnsupportedDataType.
func ToEdmType(dt tabular.DataType) (string, error) {
	switch dt {
	case tabular.Boolean:
		return "Edm.Boolean", nil
	case tabular.Int8, tabular.Int16, tabular.UInt8, tabular.UInt16:
		return "Edm.Int16", nil
	case tabular.Int32, tabular.UInt32:
		return "Edm.Int32", nil
	case tabular.Int64, tabular.UInt64:
		return "Edm.Int64", nil
	case tabular.Float32:
		return "Edm.Single", nil
	case tabular.Float64:
		return "Edm.Double", nil
	case tabular.Utf8, tabular.LargeUtf8:
		return "Edm.String", nil
	case tabular.Timestamp, tabular.Date32, tabular.Date64:
		return "Edm.DateTime", nil
	default:
		return "", &odata.UnsupportedDataType{DataType: dt}
	}
}
