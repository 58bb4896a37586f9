// Package atom encodes query results as OData v3 Atom documents.
// See: https://www.odata.org/documentation/odata-version-3-0/atom-format/
package atom

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zodata/odata-serve/internal/constants"
	"github.com/zodata/odata-serve/internal/metadata"
	"github.com/zodata/odata-serve/internal/odata"
	"github.com/zodata/odata-serve/internal/tabular"
)

// WriteFeed encodes batches as an Atom feed document, one entry per row.
func WriteFeed(
	w io.Writer,
	cctx odata.CollectionContext,
	schema *tabular.Schema,
	batches []*tabular.Batch,
	updated time.Time,
) error {
	dc, plan, err := prepare(cctx, schema, updated)
	if err != nil {
		return err
	}

	x := newXMLWriter(w)
	x.start("feed", dc.rootAttrs()...)
	x.element("id", dc.collectionBase)
	x.element("title", dc.name, attr("type", "text"))
	x.element("updated", dc.updated)
	x.empty("link", attr("rel", "self"), attr("title", dc.name), attr("href", dc.name))

	for _, batch := range batches {
		for row := 0; row < batch.NumRows(); row++ {
			x.start("entry")
			writeEntryBody(x, dc, plan, batch, row)
			x.end("entry")
		}
	}

	x.end("feed")
	return x.flush()
}

// WriteEntry encodes a single row as a standalone entry document.
func WriteEntry(
	w io.Writer,
	cctx odata.CollectionContext,
	schema *tabular.Schema,
	batch *tabular.Batch,
	row int,
	updated time.Time,
) error {
	dc, plan, err := prepare(cctx, schema, updated)
	if err != nil {
		return err
	}

	x := newXMLWriter(w)
	x.start("entry", dc.rootAttrs()...)
	writeEntryBody(x, dc, plan, batch, row)
	x.end("entry")
	return x.flush()
}

// docContext carries the per-document constants both encoders share.
type docContext struct {
	serviceBase    string
	collectionBase string
	name           string
	fqType         string
	updated        string
}

func (dc *docContext) rootAttrs() []xml.Attr {
	return []xml.Attr{
		attr("xml:base", dc.serviceBase),
		attr("xmlns", constants.AtomNamespace),
		attr("xmlns:d", constants.DataNamespace),
		attr("xmlns:m", constants.MetaNamespace),
	}
}

func prepare(cctx odata.CollectionContext, schema *tabular.Schema, updated time.Time) (*docContext, *columnPlan, error) {
	serviceBase, err := cctx.ServiceBaseURL()
	if err != nil {
		return nil, nil, err
	}
	collectionBase, err := cctx.CollectionBaseURL()
	if err != nil {
		return nil, nil, err
	}
	name, err := cctx.CollectionName()
	if err != nil {
		return nil, nil, err
	}
	namespace, err := cctx.CollectionNamespace()
	if err != nil {
		return nil, nil, err
	}

	if !strings.HasPrefix(serviceBase, "http") {
		return nil, nil, &odata.UnsupportedNetProtocol{URL: serviceBase}
	}
	if !strings.HasPrefix(collectionBase, "http") {
		return nil, nil, &odata.UnsupportedNetProtocol{URL: collectionBase}
	}
	if !strings.HasSuffix(serviceBase, "/") {
		serviceBase += "/"
	}
	collectionBase = strings.TrimSuffix(collectionBase, "/")

	plan, err := planColumns(schema, cctx.KeyColumnAlias(), cctx.OnUnsupportedFeature(), name)
	if err != nil {
		return nil, nil, err
	}

	return &docContext{
		serviceBase:    serviceBase,
		collectionBase: collectionBase,
		name:           name,
		fqType:         namespace + "." + name,
		updated:        formatDateTime(updated),
	}, plan, nil
}

// columnPlan splits the result schema into the identity source and the
// property columns to emit.
type columnPlan struct {
	keyIndex int
	props    []propColumn
}

type propColumn struct {
	index   int
	tag     string
	edmType string
}

func planColumns(schema *tabular.Schema, keyAlias string, policy odata.OnUnsupported, collection string) (*columnPlan, error) {
	plan := &columnPlan{keyIndex: -1}
	for i, f := range schema.Fields() {
		if f.Name == keyAlias {
			plan.keyIndex = i
			continue
		}
		edmType, err := metadata.ToEdmType(f.Type)
		if err != nil {
			if policy == odata.OnUnsupportedWarn {
				slog.Warn("Unsupported column type, dropping from response",
					"collection", collection,
					"field", f.Name,
					"type", f.Type.String())
				continue
			}
			return nil, err
		}
		plan.props = append(plan.props, propColumn{index: i, tag: "d:" + f.Name, edmType: edmType})
	}
	if plan.keyIndex < 0 {
		return nil, odata.Internal(fmt.Errorf("key alias column %q missing from result schema", keyAlias))
	}
	return plan, nil
}

func writeEntryBody(x *xmlWriter, dc *docContext, plan *columnPlan, batch *tabular.Batch, row int) {
	key, err := encodeValue(batch.Column(plan.keyIndex), row)
	if err != nil {
		x.setErr(err)
		return
	}

	x.element("id", dc.collectionBase+"("+key+")")
	x.empty("category", attr("scheme", constants.SchemeNamespace), attr("term", dc.fqType))
	x.empty("link", attr("rel", "edit"), attr("title", dc.name), attr("href", dc.name+"("+key+")"))
	x.empty("title")
	x.element("updated", dc.updated)
	x.start("author")
	x.empty("name")
	x.end("author")

	x.start("content", attr("type", "application/xml"))
	x.start("m:properties")
	for _, p := range plan.props {
		v, err := encodeValue(batch.Column(p.index), row)
		if err != nil {
			x.setErr(err)
			return
		}
		x.element(p.tag, v, attr("m:type", p.edmType))
	}
	x.end("m:properties")
	x.end("content")
}

// encodeValue renders one cell as the element text for its EDM type.
// Nulls render as the literal "null", except 8 and 16-bit integers which
// render "0". The switch is exhaustive over the closed type set; only
// the key column can reach the unsupported branch, since the column plan
// already filtered the properties.
func encodeValue(col tabular.Column, row int) (string, error) {
	dt := col.DataType()
	if col.IsNull(row) {
		switch dt {
		case tabular.Int8, tabular.Int16, tabular.UInt8, tabular.UInt16:
			return "0", nil
		default:
			return "null", nil
		}
	}

	switch dt {
	case tabular.Boolean:
		return strconv.FormatBool(col.Value(row).(bool)), nil
	case tabular.Int8:
		return strconv.FormatInt(int64(col.Value(row).(int8)), 10), nil
	case tabular.Int16:
		return strconv.FormatInt(int64(col.Value(row).(int16)), 10), nil
	case tabular.Int32:
		return strconv.FormatInt(int64(col.Value(row).(int32)), 10), nil
	case tabular.Int64:
		return strconv.FormatInt(col.Value(row).(int64), 10), nil
	case tabular.UInt8:
		return strconv.FormatUint(uint64(col.Value(row).(uint8)), 10), nil
	case tabular.UInt16:
		return strconv.FormatUint(uint64(col.Value(row).(uint16)), 10), nil
	case tabular.UInt32:
		return strconv.FormatUint(uint64(col.Value(row).(uint32)), 10), nil
	case tabular.UInt64:
		return strconv.FormatUint(col.Value(row).(uint64), 10), nil
	case tabular.Float32:
		return strconv.FormatFloat(float64(col.Value(row).(float32)), 'f', -1, 32), nil
	case tabular.Float64:
		return strconv.FormatFloat(col.Value(row).(float64), 'f', -1, 64), nil
	case tabular.Utf8, tabular.LargeUtf8:
		return col.Value(row).(string), nil
	case tabular.Timestamp:
		return formatDateTime(col.Value(row).(time.Time)), nil
	case tabular.Date32:
		days := col.Value(row).(int32)
		return formatDateTime(time.Unix(int64(days)*86400, 0)), nil
	case tabular.Date64:
		return formatDateTime(time.UnixMilli(col.Value(row).(int64))), nil
	default:
		return "", &odata.UnsupportedDataType{DataType: dt}
	}
}

// formatDateTime renders an instant as RFC3339 with millisecond
// precision and a Z suffix.
func formatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// xmlWriter is a sticky-error wrapper over the token encoder: after the
// first failure every call is a no-op and flush reports that failure.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func newXMLWriter(w io.Writer) *xmlWriter {
	x := &xmlWriter{enc: xml.NewEncoder(w)}
	if _, err := io.WriteString(w, constants.XMLDeclaration); err != nil {
		x.err = err
	}
	return x
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (x *xmlWriter) setErr(err error) {
	if x.err == nil {
		x.err = err
	}
}

func (x *xmlWriter) token(t xml.Token) {
	if x.err != nil {
		return
	}
	x.err = x.enc.EncodeToken(t)
}

func (x *xmlWriter) start(name string, attrs ...xml.Attr) {
	x.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (x *xmlWriter) end(name string) {
	x.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (x *xmlWriter) text(s string) {
	x.token(xml.CharData(s))
}

func (x *xmlWriter) element(name, text string, attrs ...xml.Attr) {
	x.start(name, attrs...)
	x.text(text)
	x.end(name)
}

func (x *xmlWriter) empty(name string, attrs ...xml.Attr) {
	x.start(name, attrs...)
	x.end(name)
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.enc.Flush()
}
