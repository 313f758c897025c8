package server

import (
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>API Tester Relay</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.onload = () => {
      window.ui = SwaggerUIBundle({ url: "/docs/openapi.json", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`

func (s *Server) handleDocs(c echo.Context) error {
	return c.HTML(http.StatusOK, docsPage)
}

func (s *Server) handleOpenAPI(c echo.Context) error {
	return c.JSON(http.StatusOK, Document(s.port))
}

// Document describes the relay's HTTP API as OpenAPI 3
func Document(port int) *openapi3.T {
	sendRequest := openapi3.NewObjectSchema().
		WithProperty("url", openapi3.NewStringSchema()).
		WithProperty("method", openapi3.NewStringSchema().WithEnum("GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS")).
		WithProperty("headers", openapi3.NewObjectSchema().WithAnyAdditionalProperties()).
		WithProperty("body", &openapi3.Schema{Description: "Sent as JSON; a string is sent as plain text"})
	sendRequest.Required = []string{"url", "method"}

	sendResult := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewIntegerSchema()).
		WithProperty("statusText", openapi3.NewStringSchema()).
		WithProperty("headers", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithProperty("data", &openapi3.Schema{Description: "Parsed JSON, or the raw text when the body is not JSON"}).
		WithProperty("time", openapi3.NewStringSchema().WithPattern(`^\d+ms$`))

	failure := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewBoolSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("stack", openapi3.NewStringSchema())

	errorMessage := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema())

	send := openapi3.NewOperation()
	send.OperationID = "sendRequest"
	send.Summary = "Perform an HTTP request and report the result"
	send.Description = "Every downstream status code is reported with 200. Only a failure to complete the call is an error."
	send.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(sendRequest),
	}
	send.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Downstream result").WithJSONSchema(sendResult),
		}),
		openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("URL and method are required").WithJSONSchema(errorMessage),
		}),
		openapi3.WithStatus(http.StatusInternalServerError, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("The call could not be completed").WithJSONSchema(failure),
		}),
	)

	live := openapi3.NewOperation()
	live.OperationID = "liveness"
	live.Summary = "Liveness check"
	live.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("The relay is up").
				WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"})),
		}),
	)

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Servers: openapi3.Servers{
			&openapi3.Server{URL: fmt.Sprintf("http://localhost:%d", port)},
		},
		Info: &openapi3.Info{
			Title:       "API Tester Relay",
			Description: "Performs HTTP requests on behalf of clients that cannot make them directly.",
			Version:     "1.0.0",
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/", &openapi3.PathItem{Get: live}),
			openapi3.WithPath("/api/test/send", &openapi3.PathItem{Post: send}),
		),
	}
}
