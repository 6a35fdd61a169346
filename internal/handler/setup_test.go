package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/adocstore/internal/converter"
	"github.com/xxxsen/adocstore/internal/handler"
	"github.com/xxxsen/adocstore/internal/middleware"
	"github.com/xxxsen/adocstore/internal/model"
	"github.com/xxxsen/adocstore/internal/pkg/timeutil"
	"github.com/xxxsen/adocstore/internal/repo"
	"github.com/xxxsen/adocstore/internal/service"
	"github.com/xxxsen/adocstore/internal/tenant"
	"github.com/xxxsen/adocstore/internal/testutil"
)

const (
	testKey      = "test-key"
	otherKey     = "other-key"
	introSource  = "= Introduction to AsciiDoc\nDoc Writer <doc@example.com>\n\nA preface about http://asciidoc.org[AsciiDoc].\n\n== First Section\n\n* item 1\n* item 2\n\n[source,ruby]\nputs \"Hello, World!\"\n"
	introTitle   = "Introduction to AsciiDoc"
	introEscaped = "Introduction%20to%20AsciiDoc"
)

var cest = time.FixedZone("CEST", 2*60*60)

type testEnv struct {
	router http.Handler
	db     *sqlx.DB
	owner  *model.Tenant
	other  *model.Tenant
}

func setupRouter(t *testing.T, backend string, maxUpload int64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)
	owner := testutil.SeedTenant(t, db, "test@example.com", testKey)
	other := testutil.SeedTenant(t, db, "other@example.com", otherKey)

	conv, err := converter.New(backend, converter.Options{})
	require.NoError(t, err)
	docs := repo.NewDocumentRepo(db)
	resolver := tenant.NewStoreResolver(repo.NewTenantRepo(db))

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(
			service.NewIngestService(docs, conv),
			service.NewRetrievalService(docs),
			timeutil.NewDateFormat(cest),
			maxUpload,
		),
		Resolver: resolver,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
		),
	)
	require.NoError(t, err)
	return &testEnv{router: engine, db: db, owner: owner, other: other}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func uploadRequest(t *testing.T, key string, filename string, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, writer.WriteField("note", "no file here"))
	}
	require.NoError(t, writer.Close())
	target := "/api/v1/asciidocs"
	if key != "" {
		target += "?apikey=" + key
	}
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}
