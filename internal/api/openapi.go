package api

import (
	"github.com/lectern-labs/lectern/internal/config"
	"github.com/lectern-labs/lectern/pkg/openapi"
)

// buildSpec describes the public API surface for documentation clients.
func buildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"Paper": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"content_hash": {Type: "string", Description: "SHA-256 of the source PDF"},
				"filename":     {Type: "string"},
				"size_bytes":   {Type: "integer"},
				"page_count":   {Type: "integer"},
				"storage_key":  {Type: "string"},
				"chunk_count":  {Type: "integer"},
				"ingested_at":  {Type: "string", Format: "date-time"},
			},
		},
		"IngestResponse": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"paper_id":   {Type: "string", Format: "uuid"},
				"status":     {Type: "string", Enum: []any{"created", "already_exists"}},
				"page_count": {Type: "integer"},
			},
		},
		"AskRequest": {
			Type:     "object",
			Required: []string{"question"},
			Properties: map[string]*openapi.Schema{
				"question": {Type: "string", Description: "Natural language question"},
				"paper_id": {Type: "string", Format: "uuid", Description: "Target paper. Defaults to the most recently ingested paper."},
			},
		},
		"Answer": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"answer":  {Type: "string"},
				"sources": {Type: "array", Items: &openapi.Schema{Type: "integer"}, Description: "Page numbers cited by retrieved context"},
				"vision":  {Type: "string", Description: "Visual analysis finding, when page images were consulted"},
			},
		},
	})

	spec.Paths["/ingest"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Ingest a PDF paper",
			Tags:    []string{"papers"},
			RequestBody: &openapi.RequestBody{
				Required: true,
				Content: map[string]*openapi.MediaType{
					"multipart/form-data": {
						Schema: &openapi.Schema{
							Type: "object",
							Properties: map[string]*openapi.Schema{
								"file": {Type: "string", Format: "binary"},
							},
							Required: []string{"file"},
						},
					},
				},
			},
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Paper ingested", "IngestResponse"),
				200: openapi.ResponseJSON("Paper already indexed", "IngestResponse"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/papers"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List ingested papers",
			Tags:    []string{"papers"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Filename search", false),
				openapi.QueryParam("sort", "string", "Comma-separated sort fields, - prefix for descending", false),
			},
			Responses: map[int]*openapi.Response{
				200: {
					Description: "Page of papers",
					Content: map[string]*openapi.MediaType{
						"application/json": {
							Schema: &openapi.Schema{
								Type: "object",
								Properties: map[string]*openapi.Schema{
									"data":        {Type: "array", Items: openapi.SchemaRef("Paper")},
									"total":       {Type: "integer"},
									"page":        {Type: "integer"},
									"page_size":   {Type: "integer"},
									"total_pages": {Type: "integer"},
								},
							},
						},
					},
				},
			},
		},
	}

	spec.Paths["/ask"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Answer a question",
			Tags:        []string{"ask"},
			RequestBody: openapi.RequestBodyJSON("AskRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Synthesized answer", "Answer"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/ask/stream"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Answer a question with streamed progress events",
			Description: "Server-sent event stream. Emits task lifecycle events followed by a final_answer event.",
			Tags:        []string{"ask"},
			RequestBody: openapi.RequestBodyJSON("AskRequest", true),
			Responses: map[int]*openapi.Response{
				200: {
					Description: "Event stream",
					Content: map[string]*openapi.MediaType{
						"text/event-stream": {Schema: &openapi.Schema{Type: "string"}},
					},
				},
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	return spec
}
