// Package openapi describes the rfapi HTTP API as an OpenAPI 3 document.
//
// The same document backs the runtime /openapi.json endpoint and the file
// exported at startup, so the two always agree on naming and version.
package openapi

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/circleci/rfapi/closer"
)

const Version = "3.0.3"

type Info struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Contact     *Contact `json:"contact,omitempty"`
	Version     string   `json:"version"`
}

type Contact struct {
	Name string `json:"name,omitempty"`
}

// DefaultInfo is the service description used by both the endpoint and the export.
func DefaultInfo(version string) Info {
	if version == "" {
		version = "dev"
	}
	return Info{
		Title:       "rfapi",
		Description: "forever in progress",
		Contact:     &Contact{Name: "sakti"},
		Version:     version,
	}
}

type Document struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Paths      map[string]*PathItem `json:"paths"`
	Components Components           `json:"components"`
}

type PathItem struct {
	Get *Operation `json:"get,omitempty"`
	Put *Operation `json:"put,omitempty"`
}

type Operation struct {
	OperationID string               `json:"operationId"`
	Summary     string               `json:"summary,omitempty"`
	Description string               `json:"description,omitempty"`
	RequestBody *RequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses"`
}

type RequestBody struct {
	Content  map[string]MediaType `json:"content"`
	Required bool                 `json:"required"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

type Schema struct {
	Ref        string             `json:"$ref,omitempty"`
	Title      string             `json:"title,omitempty"`
	Type       string             `json:"type,omitempty"`
	Format     string             `json:"format,omitempty"`
	Minimum    *int               `json:"minimum,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type Components struct {
	Schemas   map[string]*Schema   `json:"schemas"`
	Responses map[string]*Response `json:"responses"`
}

func ref(kind, name string) string {
	return fmt.Sprintf("#/components/%s/%s", kind, name)
}

func jsonContent(s *Schema) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: s}}
}

// Describe builds the document for every route the API serves.
//
//nolint:funlen
func Describe(info Info) *Document {
	zero := 0
	counterValue := &Schema{Ref: ref("schemas", "CounterValue")}
	errorResponse := func() *Response {
		return &Response{Description: "Error", Content: jsonContent(&Schema{Ref: ref("schemas", "Error")})}
	}

	return &Document{
		OpenAPI: Version,
		Info:    info,
		Paths: map[string]*PathItem{
			"/": {
				Get: &Operation{
					OperationID: "index",
					Responses: map[string]*Response{
						"default": {Description: "", Content: map[string]MediaType{"text/html": {}}},
					},
				},
			},
			"/openapi.json": {
				Get: &Operation{
					OperationID: "docs",
					Responses: map[string]*Response{
						"default": {Description: "", Content: map[string]MediaType{"application/json": {}}},
					},
				},
			},
			"/counter": {
				Get: &Operation{
					OperationID: "get_counter",
					Summary:     "Fetch the current value of the counter.",
					Responses: map[string]*Response{
						"200": {Description: "successful operation", Content: jsonContent(counterValue)},
						"4XX": errorResponse(),
						"5XX": errorResponse(),
					},
				},
				Put: &Operation{
					OperationID: "put_counter",
					Summary:     "Update the current value of the counter.",
					Description: "Note that the special value of 10 is not allowed.",
					RequestBody: &RequestBody{Content: jsonContent(counterValue), Required: true},
					Responses: map[string]*Response{
						"204": {Description: "resource updated"},
						"4XX": errorResponse(),
						"5XX": errorResponse(),
					},
				},
			},
		},
		Components: Components{
			Schemas: map[string]*Schema{
				"CounterValue": {
					Title: "CounterValue",
					Type:  "object",
					Properties: map[string]*Schema{
						"counter": {Type: "integer", Format: "uint64", Minimum: &zero},
					},
					Required: []string{"counter"},
				},
				"Error": {
					Title: "Error",
					Type:  "object",
					Properties: map[string]*Schema{
						"error_code": {Type: "string"},
						"message":    {Type: "string"},
					},
					Required: []string{"message"},
				},
			},
			Responses: map[string]*Response{
				"Error": errorResponse(),
			},
		},
	}
}

// JSON renders the document, indented.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// WriteFile writes the rendered document to path, replacing any existing file.
func WriteFile(path string, d *Document) (err error) {
	b, err := d.JSON()
	if err != nil {
		return fmt.Errorf("failed to render api description: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //#nosec:G304 // path is operator config
	if err != nil {
		return fmt.Errorf("failed to write api description: %w", err)
	}
	defer closer.ErrorHandler(f, &err)

	_, err = f.Write(b)
	if err != nil {
		return fmt.Errorf("failed to write api description: %w", err)
	}
	return nil
}
