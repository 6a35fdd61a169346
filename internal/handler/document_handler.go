package handler

import (
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/converter"
	"github.com/xxxsen/adocstore/internal/pkg/errcode"
	"github.com/xxxsen/adocstore/internal/pkg/response"
	"github.com/xxxsen/adocstore/internal/pkg/timeutil"
	"github.com/xxxsen/adocstore/internal/service"
)

const BackendHeader = "X-Backend"

type DocumentHandler struct {
	ingest         *service.IngestService
	retrieval      *service.RetrievalService
	dates          timeutil.DateFormat
	maxUploadBytes int64
}

func NewDocumentHandler(ingest *service.IngestService, retrieval *service.RetrievalService, dates timeutil.DateFormat, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &DocumentHandler{
		ingest:         ingest,
		retrieval:      retrieval,
		dates:          dates,
		maxUploadBytes: maxUploadBytes,
	}
}

type uploadResponse struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Backend string `json:"backend"`
}

type asciidocEntry struct {
	ID           int64  `json:"id" xml:"id"`
	Owner        string `json:"owner" xml:"owner"`
	Title        string `json:"title" xml:"title"`
	CreationDate string `json:"creationDate" xml:"creationDate"`
}

type asciidocList struct {
	XMLName xml.Name        `xml:"asciidocs"`
	Items   []asciidocEntry `xml:"asciidoc"`
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "file is required")
		return
	}
	tooLarge := "file exceeds " + formatUploadLimit(h.maxUploadBytes)
	if fileHeader.Size > h.maxUploadBytes {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, tooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "file is unreadable")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "file is unreadable")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, tooLarge)
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), getTenantID(c), string(data))
	if err != nil {
		handleError(c, err)
		return
	}
	location := strings.TrimSuffix(c.Request.URL.Path, "/") + "/" + url.PathEscape(res.Title)
	c.Header("Location", location)
	response.Success(c, http.StatusCreated, uploadResponse{ID: res.ID, Title: res.Title, Backend: res.Backend})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	title := strings.TrimPrefix(c.Param("title"), "/")
	doc, err := h.retrieval.GetByTitle(c.Request.Context(), getTenantID(c), title)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header(BackendHeader, doc.Backend)
	c.Data(http.StatusOK, converter.ContentTypeFor(doc.Backend), []byte(doc.Content))
}

// List answers in XML when the client asks for it and JSON otherwise.
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.retrieval.List(c.Request.Context(), getTenantID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]asciidocEntry, 0, len(docs))
	for _, doc := range docs {
		items = append(items, asciidocEntry{
			ID:           doc.ID,
			Owner:        doc.Owner,
			Title:        doc.Title,
			CreationDate: h.dates.FormatUnix(doc.Ctime),
		})
	}
	logutil.GetLogger(c.Request.Context()).Debug("list documents", zap.Int64("tenant_id", getTenantID(c)), zap.Int("count", len(items)))
	switch c.NegotiateFormat(binding.MIMEJSON, binding.MIMEXML, binding.MIMEXML2) {
	case binding.MIMEXML, binding.MIMEXML2:
		c.XML(http.StatusOK, asciidocList{Items: items})
	default:
		response.Success(c, http.StatusOK, items)
	}
}
