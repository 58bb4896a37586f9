package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zodata/odata-serve/internal/atom"
	"github.com/zodata/odata-serve/internal/constants"
	"github.com/zodata/odata-serve/internal/metadata"
	"github.com/zodata/odata-serve/internal/metrics"
	"github.com/zodata/odata-serve/internal/odata"
	"github.com/zodata/odata-serve/internal/tabular"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleService(c *gin.Context) {
	svc := s.serviceFor(c.Request)
	doc, err := metadata.BuildService(c.Request.Context(), svc)
	if err != nil {
		s.renderError(c, err)
		return
	}
	body, err := metadata.EncodeDocument(doc)
	if err != nil {
		s.renderError(c, odata.Internal(err))
		return
	}
	c.Data(http.StatusOK, constants.ContentTypeXML, body)
}

func (s *Server) handleMetadata(c *gin.Context) {
	svc := s.serviceFor(c.Request)
	doc, err := metadata.BuildMetadata(c.Request.Context(), svc)
	if err != nil {
		s.renderError(c, err)
		return
	}
	body, err := metadata.EncodeDocument(doc)
	if err != nil {
		s.renderError(c, odata.Internal(err))
		return
	}
	c.Data(http.StatusOK, constants.ContentTypeXML, body)
}

func (s *Server) handleCollection(c *gin.Context) {
	element := c.Param("collection")
	if element == constants.MetadataEndpoint {
		s.handleMetadata(c)
		return
	}

	addr, ok := odata.DecodeCollectionAddr(element)
	if !ok {
		s.renderError(c, &odata.CollectionNotFound{Collection: element})
		return
	}

	params, err := rawQueryParams(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	svc := s.serviceFor(c.Request)
	cctx, err := svc.Collection(addr)
	if err != nil {
		s.renderError(c, err)
		return
	}

	plan, err := params.Decode()
	if err != nil {
		s.renderError(c, err)
		return
	}
	slog.Debug("Decoded query", "collection", addr.Name, "plan", plan)

	ctx := c.Request.Context()
	frame, err := cctx.Query(ctx, plan)
	if err != nil {
		s.renderError(c, err)
		return
	}
	batches, err := frame.Collect(ctx)
	if err != nil {
		s.renderError(c, odata.Internal(err))
		return
	}
	if err := cctx.Validate(batches); err != nil {
		s.renderError(c, err)
		return
	}

	numRows, rawBytes := 0, 0
	for _, b := range batches {
		numRows += b.NumRows()
		rawBytes += b.MemorySize()
	}

	var buf bytes.Buffer
	buf.Grow(constants.DefaultResponseSize)
	schema := frame.Schema()
	updated := cctx.LastUpdatedTime(ctx)

	if addr.Key != "" {
		if numRows == 0 {
			c.Status(http.StatusNotFound)
			return
		}
		if numRows > 1 {
			s.renderError(c, odata.Internal(fmt.Errorf("key %q matched %d rows in collection %q", addr.Key, numRows, addr.Name)))
			return
		}
		err = atom.WriteEntry(&buf, cctx, schema, singleRowBatch(batches), 0, updated)
	} else {
		err = atom.WriteFeed(&buf, cctx, schema, batches, updated)
	}
	if err != nil {
		s.renderError(c, err)
		return
	}

	slog.Debug("Rendered collection response",
		"collection", addr.Name,
		"num_rows", numRows,
		"raw_bytes", rawBytes,
		"xml_bytes", buf.Len())
	metrics.RowsReturned.WithLabelValues(addr.Name).Add(float64(numRows))

	c.Data(http.StatusOK, constants.ContentTypeAtomFeed, buf.Bytes())
}

// rawQueryParams extracts the OData system query options. $skip and $top
// must be unsigned integers; $select, $orderby and $filter stay raw for
// the decoder.
func rawQueryParams(c *gin.Context) (*odata.RawQueryParams, error) {
	params := &odata.RawQueryParams{
		Select:  c.Query(constants.QuerySelect),
		OrderBy: c.Query(constants.QueryOrderBy),
	}
	if v, ok := c.GetQuery(constants.QuerySkip); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", constants.QuerySkip, v)
		}
		params.Skip = &n
	}
	if v, ok := c.GetQuery(constants.QueryTop); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", constants.QueryTop, v)
		}
		params.Top = &n
	}
	if v, ok := c.GetQuery(constants.QueryFilter); ok {
		params.Filter = &v
	}
	return params, nil
}

// singleRowBatch returns the batch holding the only row of the result.
func singleRowBatch(batches []*tabular.Batch) *tabular.Batch {
	for _, b := range batches {
		if b.NumRows() > 0 {
			return b
		}
	}
	return batches[0]
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := odata.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.String(status, odata.ResponseBody(err))
}
