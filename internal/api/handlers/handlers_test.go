package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJSONBody(body string) io.Reader {
	return strings.NewReader(body)
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) models.ErrorModel {
	t.Helper()
	var resp models.IcebergErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp.Error
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
	}{
		{
			name:     "namespace not found",
			err:      &services.NotFoundError{Resource: "namespace", ID: "acct"},
			wantCode: http.StatusNotFound,
			wantType: models.ErrorTypeNoSuchNamespace,
		},
		{
			name:     "table not found",
			err:      &services.NotFoundError{Resource: "table", ID: "acct.t1"},
			wantCode: http.StatusNotFound,
			wantType: models.ErrorTypeNoSuchTable,
		},
		{
			name:     "already exists",
			err:      &services.ConflictError{Resource: "table", ID: "acct.t1"},
			wantCode: http.StatusConflict,
			wantType: models.ErrorTypeAlreadyExists,
		},
		{
			name:     "namespace not empty",
			err:      &services.NotEmptyError{Namespace: "acct"},
			wantCode: http.StatusConflict,
			wantType: models.ErrorTypeNamespaceNotEmpty,
		},
		{
			name:     "unprocessable",
			err:      &services.UnprocessableError{Message: "key in both sets"},
			wantCode: http.StatusUnprocessableEntity,
			wantType: models.ErrorTypeUnprocessableEntity,
		},
		{
			name:     "validation",
			err:      &services.ValidationError{Message: "bad token"},
			wantCode: http.StatusBadRequest,
			wantType: models.ErrorTypeBadRequest,
		},
		{
			name:     "precondition failed",
			err:      &services.PreconditionFailedError{RequirementType: "assert-current-schema-id"},
			wantCode: http.StatusConflict,
			wantType: models.ErrorTypeCommitFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/p/namespaces", nil)

			respondWithServiceError(c, tt.err)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			errBody := decodeErrorBody(t, w)
			if errBody.Type != tt.wantType {
				t.Errorf("type = %q, want %q", errBody.Type, tt.wantType)
			}
			if errBody.Code != tt.wantCode {
				t.Errorf("body code = %d, want %d", errBody.Code, tt.wantCode)
			}
		})
	}
}

func TestRespondWithServiceErrorPreconditionMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/p/namespaces/n/tables/t", nil)

	respondWithServiceError(c, &services.PreconditionFailedError{RequirementType: "assert-current-schema-id"})

	errBody := decodeErrorBody(t, w)
	if errBody.Message != "Table requirement not met: assert-current-schema-id" {
		t.Errorf("message must name the failing requirement, got %q", errBody.Message)
	}
}

func TestLoadRejectsInvalidSnapshotsParam(t *testing.T) {
	handler := NewTableHandler(nil, nil)

	router := gin.New()
	router.GET("/v1/:prefix/namespaces/:namespace/tables/:table", handler.Load)

	req := httptest.NewRequest(http.MethodGet, "/v1/p/namespaces/n/tables/t?snapshots=latest", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errBody := decodeErrorBody(t, w)
	if errBody.Type != models.ErrorTypeBadRequest {
		t.Errorf("type = %q, want %q", errBody.Type, models.ErrorTypeBadRequest)
	}
}

func TestListRejectsInvalidPageSize(t *testing.T) {
	handler := NewNamespaceHandler(nil)

	router := gin.New()
	router.GET("/v1/:prefix/namespaces", handler.List)

	req := httptest.NewRequest(http.MethodGet, "/v1/p/namespaces?page_size=zero", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCreateTableRejectsMalformedBody(t *testing.T) {
	handler := NewTableHandler(nil, nil)

	router := gin.New()
	router.POST("/v1/:prefix/namespaces/:namespace/tables", handler.Create)

	req := httptest.NewRequest(http.MethodPost, "/v1/p/namespaces/n/tables", nil)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUpdateRejectsUnknownAction(t *testing.T) {
	handler := NewTableHandler(nil, nil)

	router := gin.New()
	router.POST("/v1/:prefix/namespaces/:namespace/tables/:table", handler.Update)

	body := `{"requirements": [], "updates": [{"action": "frobnicate"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/p/namespaces/n/tables/t", newJSONBody(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
