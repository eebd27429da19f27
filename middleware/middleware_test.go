package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	midsec "DogiCord/middleware/security"
	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func verify(token string) (string, error) {
	if token == "good" {
		return "alice", nil
	}
	return "", errors.New("bad token")
}

func newEngine() *gin.Engine {
	SetAuth(midsec.DefaultOptions(verify))
	r := gin.New()
	r.Use(Recovery(), AccessLog(), Origin([]string{"https://dogicord.app"}))
	GET(r, "/me", func(c *gin.Context) { resp.OK(c, midsec.Username(c)) }, RouteOpt{IsAuth: true})
	GET(r, "/open", func(c *gin.Context) { resp.OK(c, "hi") }, RouteOpt{})
	GET(r, "/panic", func(c *gin.Context) { panic("boom") }, RouteOpt{})
	return r
}

func do(r http.Handler, method, target string, hdr map[string]string) (*httptest.ResponseRecorder, resp.Body) {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body resp.Body
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthRoutes(t *testing.T) {
	r := newEngine()

	w, body := do(r, http.MethodGet, "/me", nil)
	if w.Code != http.StatusUnauthorized || body.Code != errs.TokenInvalidError {
		t.Fatalf("missing token: %d %+v", w.Code, body)
	}
	w, _ = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
	w, body = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer good"})
	if w.Code != http.StatusOK || body.Data != "alice" {
		t.Fatalf("bearer: %d %+v", w.Code, body)
	}
	w, body = do(r, http.MethodGet, "/me?token=good", nil)
	if w.Code != http.StatusOK || body.Data != "alice" {
		t.Fatalf("query token: %d %+v", w.Code, body)
	}
	if w, _ = do(r, http.MethodGet, "/open", nil); w.Code != http.StatusOK {
		t.Fatalf("open route: %d", w.Code)
	}
}

func TestRecoveryAndOrigin(t *testing.T) {
	r := newEngine()
	w, body := do(r, http.MethodGet, "/panic", nil)
	if w.Code != http.StatusInternalServerError || body.Code != errs.ServerInternalError || body.Detail != "boom" {
		t.Fatalf("panic: %d %+v", w.Code, body)
	}

	w, _ = do(r, http.MethodOptions, "/open", map[string]string{"Origin": "https://dogicord.app"})
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "https://dogicord.app" {
		t.Fatalf("preflight: %d %v", w.Code, w.Header())
	}
	w, _ = do(r, http.MethodGet, "/open", map[string]string{"Origin": "https://evil.example"})
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin got CORS headers")
	}
}

func TestManagerStopsOnAbort(t *testing.T) {
	m := NewManager()
	ran := 0
	m.Set("deny", func(c *gin.Context) { ran++; c.AbortWithStatus(http.StatusForbidden) })
	m.Set("count", func(c *gin.Context) { ran++ })
	r := gin.New()
	r.Use(m.Use())
	r.GET("/x", func(c *gin.Context) { ran++ })
	w, _ := do(r, http.MethodGet, "/x", nil)
	if w.Code != http.StatusForbidden || ran != 1 {
		t.Fatalf("status=%d ran=%d", w.Code, ran)
	}
}

func TestManagerSetReplacesInPlace(t *testing.T) {
	m := NewManager()
	m.Set("a", func(c *gin.Context) { c.Header("X-A", "1") })
	m.Set("b", func(c *gin.Context) { c.Header("X-B", "1") })
	m.Set("a", func(c *gin.Context) { c.Header("X-A", "2") })
	if got := m.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("names = %v", got)
	}
	r := gin.New()
	r.Use(m.Use())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w, _ := do(r, http.MethodGet, "/x", nil)
	if w.Header().Get("X-A") != "2" || w.Header().Get("X-B") != "1" {
		t.Fatalf("headers = %v", w.Header())
	}
	if !m.Remove("b") || m.Remove("b") {
		t.Fatalf("remove")
	}
}
