package openapi

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/keydesk/keydesk/internal/model"
)

// ─── MapGoType Tests ────────────────────────────────────────────────────────

func TestMapGoType(t *testing.T) {
	tests := []struct {
		name       string
		v          interface{}
		wantType   string
		wantFormat string
	}{
		{"int64", int64(0), "integer", "int64"},
		{"int", 0, "integer", "int32"},
		{"float64", 0.0, "number", "double"},
		{"bool", false, "boolean", ""},
		{"string", "", "string", ""},
		{"named string", model.KeyActive, "string", ""},
		{"time", time.Time{}, "string", "date-time"},
		{"time pointer", &time.Time{}, "string", "date-time"},
		{"slice", []string{}, "array", ""},
		{"map", map[string]string{}, "object", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapGoType(reflect.TypeOf(tt.v))
			if got.Type != tt.wantType || got.Format != tt.wantFormat {
				t.Errorf("MapGoType(%T) = %+v, want {%s %s}", tt.v, got, tt.wantType, tt.wantFormat)
			}
		})
	}
}

// ─── structSchema Tests ─────────────────────────────────────────────────────

func TestStructSchemaSkipsHiddenFields(t *testing.T) {
	s := structSchema(model.Admin{}).Value

	if _, ok := s.Properties["password"]; ok {
		t.Error("password hash must not appear in the schema")
	}
	if _, ok := s.Properties["PasswordHash"]; ok {
		t.Error("password hash must not appear in the schema")
	}
	if _, ok := s.Properties["email"]; !ok {
		t.Error("expected email property")
	}
}

func TestStructSchemaOmitEmptyNotRequired(t *testing.T) {
	s := structSchema(model.AuthStatus{}).Value

	if len(s.Required) != 1 || s.Required[0] != "authenticated" {
		t.Errorf("Required = %v, want [authenticated]", s.Required)
	}
}

// ─── Generate Tests ─────────────────────────────────────────────────────────

func TestGenerateValidates(t *testing.T) {
	doc := Generate("1.2.3", "http://localhost:3000", "keydesk_session")

	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("generated document is invalid: %v", err)
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("version = %q", doc.Info.Version)
	}
}

func TestGenerateCoversEveryRoute(t *testing.T) {
	doc := Generate("dev", "", "keydesk_session")

	routes := map[string]string{
		"/api/register":        "POST",
		"/api/login":           "POST",
		"/api/logout":          "POST",
		"/api/check-auth":      "GET",
		"/api/generate-apikey": "POST",
		"/api/create-user":     "POST",
		"/api/users":           "GET",
		"/api/apikeys":         "GET",
		"/healthz":             "GET",
		"/readyz":              "GET",
	}
	for path, method := range routes {
		item := doc.Paths.Value(path)
		if item == nil {
			t.Errorf("missing path %s", path)
			continue
		}
		if item.GetOperation(method) == nil {
			t.Errorf("missing %s %s", method, path)
		}
	}
	if len(doc.Servers) != 0 {
		t.Errorf("expected no servers without a base URL, got %d", len(doc.Servers))
	}
}

func TestGenerateSessionSecurity(t *testing.T) {
	doc := Generate("dev", "", "my_cookie")

	scheme := doc.Components.SecuritySchemes[cookieScheme].Value
	if scheme.In != "cookie" || scheme.Name != "my_cookie" {
		t.Errorf("security scheme = %+v", scheme)
	}

	for _, path := range []string{"/api/users", "/api/apikeys"} {
		op := doc.Paths.Value(path).Get
		if op.Security == nil || len(*op.Security) != 1 {
			t.Errorf("%s should require the session cookie", path)
		}
		if op.Responses.Value("401") == nil {
			t.Errorf("%s should document 401", path)
		}
	}

	if op := doc.Paths.Value("/api/generate-apikey").Post; op.Security != nil {
		t.Error("generate-apikey is public and should not declare security")
	}
}

func TestGenerateAcceptsFormBodies(t *testing.T) {
	doc := Generate("dev", "", "keydesk_session")

	body := doc.Paths.Value("/api/create-user").Post.RequestBody.Value
	for _, ct := range []string{"application/json", "application/x-www-form-urlencoded"} {
		if body.Content.Get(ct) == nil {
			t.Errorf("create-user body missing %s", ct)
		}
	}
}

func TestGenerateMarshals(t *testing.T) {
	doc := Generate("dev", "", "keydesk_session")

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", m["openapi"])
	}
}
