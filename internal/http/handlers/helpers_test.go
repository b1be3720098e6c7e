package handlers_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// small helper which returns a gin engine with one handler mounted behind
// a fake identity, standing in for RequireAuth

func setupRouter(method, path string, h gin.HandlerFunc, as *user.User) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(c *gin.Context) {
		if as != nil {
			c.Set(middlewares.CtxUser, *as)
			c.Set(middlewares.CtxUserID, as.ID)
		}
		c.Next()
	}, h)

	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()

	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %q: %v", string(env.Data), err)
	}
}

// fieldErrors indexes details.fields by field name.
func fieldErrors(t *testing.T, env envelope) map[string]handlers.FieldError {
	t.Helper()

	var details struct {
		Fields []handlers.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(env.Details, &details); err != nil {
		t.Fatalf("decode details %q: %v", string(env.Details), err)
	}

	out := make(map[string]handlers.FieldError, len(details.Fields))
	for _, fe := range details.Fields {
		out[fe.Field] = fe
	}
	return out
}
