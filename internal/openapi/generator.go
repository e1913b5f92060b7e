package openapi

import (
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/keydesk/keydesk/internal/model"
)

// Request and response shapes that exist only on the wire.
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	APIKeyID  int64  `json:"apikey_id"`
}

type generatedKey struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`
}

type probe struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const cookieScheme = "sessionCookie"

// Generate builds the OpenAPI 3.1 document for the keydesk HTTP API.
// cookieName is the session cookie name admins authenticate with.
func Generate(version, baseURL, cookieName string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "keydesk API",
			Description: "API key issuance, user registration and the admin dashboard backend.",
			Version:     version,
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{
		"Message":       structSchema(model.MessageResponse{}),
		"ErrorResponse": structSchema(model.ErrorResponse{}),
		"AuthStatus":    structSchema(model.AuthStatus{}),
		"Credentials":   structSchema(credentials{}),
		"CreateUser":    structSchema(createUser{}),
		"GeneratedKey":  structSchema(generatedKey{}),
		"APIKey":        structSchema(model.APIKey{}),
		"UserWithKey":   structSchema(model.UserWithKey{}),
		"Probe":         structSchema(probe{}),
	}
	components.Schemas["APIKey"].Value.Properties["status"].Value.Enum = []interface{}{
		string(model.KeyActive), string(model.KeyInactive),
	}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		cookieScheme: &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:        "apiKey",
				In:          "cookie",
				Name:        cookieName,
				Description: "Admin session cookie set by POST /api/login.",
			},
		},
	}
	doc.Components = &components
	doc.Paths = openapi3.NewPaths()
	b := builder{schemas: components.Schemas}

	doc.Paths.Set("/api/register", &openapi3.PathItem{
		Post: operation("auth", "register", "Register an admin account",
			b.body("Credentials"),
			b.responses("200", "Admin created", b.ref("Message"), "400", "500")),
	})
	doc.Paths.Set("/api/login", &openapi3.PathItem{
		Post: operation("auth", "login", "Log in and receive a session cookie",
			b.body("Credentials"),
			b.responses("200", "Logged in", b.ref("Message"), "400", "401", "500")),
	})
	doc.Paths.Set("/api/logout", &openapi3.PathItem{
		Post: operation("auth", "logout", "End the current session", nil,
			b.responses("200", "Logged out", b.ref("Message"))),
	})
	doc.Paths.Set("/api/check-auth", &openapi3.PathItem{
		Get: operation("auth", "checkAuth", "Report whether the caller is logged in", nil,
			b.responses("200", "Session state", b.ref("AuthStatus"))),
	})
	doc.Paths.Set("/api/generate-apikey", &openapi3.PathItem{
		Post: operation("keys", "generateAPIKey", "Issue a new API key valid for 30 days", nil,
			b.responses("200", "Key issued", b.ref("GeneratedKey"), "500")),
	})
	doc.Paths.Set("/api/create-user", &openapi3.PathItem{
		Post: operation("users", "createUser", "Register a user against an existing API key",
			b.body("CreateUser"),
			b.responses("200", "User created", b.ref("Message"), "400", "500")),
	})

	listKeys := operation("keys", "listAPIKeys", "List all API keys, newest first", nil,
		b.responses("200", "All keys", b.arrayOf("APIKey"), "401", "500"))
	listKeys.Security = sessionRequired()
	doc.Paths.Set("/api/apikeys", &openapi3.PathItem{Get: listKeys})

	listUsers := operation("users", "listUsers", "List all users with their keys, newest key first", nil,
		b.responses("200", "All users", b.arrayOf("UserWithKey"), "401", "500"))
	listUsers.Security = sessionRequired()
	doc.Paths.Set("/api/users", &openapi3.PathItem{Get: listUsers})

	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: operation("system", "healthz", "Liveness probe", nil,
			b.responses("200", "Process is up", b.ref("Probe"))),
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: operation("system", "readyz", "Readiness probe", nil,
			b.responses("200", "Dependencies reachable", b.ref("Probe"), "503")),
	})

	return doc
}

func operation(tag, id, summary string, body *openapi3.RequestBodyRef, responses *openapi3.Responses) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     summary,
		OperationID: id,
		RequestBody: body,
		Responses:   responses,
	}
}

func sessionRequired() *openapi3.SecurityRequirements {
	return &openapi3.SecurityRequirements{{cookieScheme: {}}}
}

// builder produces references into the component schemas. References
// carry the resolved value so the document validates without a loader pass.
type builder struct {
	schemas openapi3.Schemas
}

func (b builder) ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, b.schemas[name].Value)
}

func (b builder) arrayOf(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: b.ref(name),
		},
	}
}

// body accepts the named schema as JSON or as an urlencoded form.
func (b builder) body(name string) *openapi3.RequestBodyRef {
	content := openapi3.NewContentWithJSONSchemaRef(b.ref(name))
	content["application/x-www-form-urlencoded"] = openapi3.NewMediaType().WithSchemaRef(b.ref(name))
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content:  content,
		},
	}
}

var errorDescriptions = map[string]string{
	"400": "Bad request",
	"401": "Unauthorized",
	"500": "Internal server error",
	"503": "Not ready",
}

// responses builds a response set with the success response and the listed
// error codes. Error responses share the ErrorResponse schema except 503,
// which reports probe results.
func (b builder) responses(statusCode, description string, schema *openapi3.SchemaRef, errorCodes ...string) *openapi3.Responses {
	responses := &openapi3.Responses{}

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	for _, code := range errorCodes {
		desc := errorDescriptions[code]
		errSchema := b.ref("ErrorResponse")
		if code == "503" {
			errSchema = b.ref("Probe")
		}
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errSchema),
			},
		})
	}
	return responses
}
