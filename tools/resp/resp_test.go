package resp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"DogiCord/tools/errs"

	"github.com/gin-gonic/gin"
)

func run(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	var b Body
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("bad body %q: %v", w.Body.String(), err)
	}
	return w, b
}

func TestFailMapsCodeError(t *testing.T) {
	w, b := run(t, func(c *gin.Context) { Fail(c, errs.ErrBlocked.WrapMsg("send", "to", "bob")) })
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
	if b.Code != errs.BlockedError || b.Detail != "send, to=bob" {
		t.Fatalf("unexpected body %+v", b)
	}
}

func TestFailPlainErrorIsInternal(t *testing.T) {
	w, b := run(t, func(c *gin.Context) { Fail(c, errors.New("boom")) })
	if w.Code != http.StatusInternalServerError || b.Code != errs.ServerInternalError {
		t.Fatalf("status = %d body = %+v", w.Code, b)
	}
}

func TestOK(t *testing.T) {
	w, b := run(t, func(c *gin.Context) { OK(c, gin.H{"a": 1}) })
	if w.Code != http.StatusOK || b.Code != 0 || b.Data == nil {
		t.Fatalf("status = %d body = %+v", w.Code, b)
	}
}
