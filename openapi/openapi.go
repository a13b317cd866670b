// Package openapi builds the registry's OpenAPI 3.0 document describing
// the routes package's handlers, served at GET /api/openapi.json so API
// consumers can generate clients without reading source.
package openapi

import "encoding/json"

// Document is a minimal OpenAPI 3.0 root object, carrying only the
// fields this registry actually populates.
type Document struct {
	OpenAPI string              `json:"openapi"`
	Info    Info                `json:"info"`
	Servers []Server            `json:"servers,omitempty"`
	Paths   map[string]PathItem `json:"paths"`
	Tags    []Tag               `json:"tags,omitempty"`
}

type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type Server struct {
	URL string `json:"url"`
}

type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type PathItem struct {
	Get map[string]Operation `json:"-"`
}

type Operation struct {
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type Parameter struct {
	Name     string `json:"name"`
	In       string `json:"in"`
	Required bool   `json:"required"`
	Schema   Schema `json:"schema"`
}

type Schema struct {
	Type string `json:"type"`
}

type Response struct {
	Description string `json:"description"`
}

// builder accumulates path entries keyed by method so Document.Paths
// can be assembled without hand-nesting per-method maps at call sites.
type builder struct {
	paths map[string]map[string]Operation
}

func newBuilder() *builder {
	return &builder{paths: make(map[string]map[string]Operation)}
}

func (b *builder) get(path string, op Operation) {
	methods, ok := b.paths[path]
	if !ok {
		methods = make(map[string]Operation)
		b.paths[path] = methods
	}
	methods["get"] = op
}

func okResponse(description string) map[string]Response {
	return map[string]Response{
		"200": {Description: description},
		"404": {Description: "not found"},
	}
}

// New builds the document describing every handler the registry
// registers in cmd/registryd, grounded on the route set routes.Deps
// exposes (ListTypes, ListVersions, GetBuild, ListFiles, DownloadFile,
// GithubAuthorize/Callback, Me).
func New(baseURL, version string) *Document {
	b := newBuilder()

	b.get("/api/types", Operation{
		Summary:   "List server types",
		Tags:      []string{"types"},
		Responses: okResponse("server type metadata with build/version stats"),
	})

	b.get("/api/{type}/versions", Operation{
		Summary: "List versions for a server type",
		Tags:    []string{"versions"},
		Parameters: []Parameter{
			{Name: "type", In: "path", Required: true, Schema: Schema{Type: "string"}},
		},
		Responses: okResponse("versions with their latest build"),
	})

	b.get("/api/build/{identifier}", Operation{
		Summary: "Resolve a build by id or hash",
		Tags:    []string{"builds"},
		Parameters: []Parameter{
			{Name: "identifier", In: "path", Required: true, Schema: Schema{Type: "string"}},
		},
		Responses: okResponse("the matched build, its latest sibling, and version rollup"),
	})

	b.get("/api/files/{path}", Operation{
		Summary: "List files under a build path",
		Tags:    []string{"files"},
		Parameters: []Parameter{
			{Name: "path", In: "path", Required: true, Schema: Schema{Type: "string"}},
		},
		Responses: okResponse("directory children, or a .CHECKSUMS.txt manifest"),
	})

	b.get("/api/files/download/{path}", Operation{
		Summary: "Download a file",
		Tags:    []string{"files"},
		Parameters: []Parameter{
			{Name: "path", In: "path", Required: true, Schema: Schema{Type: "string"}},
		},
		Responses: okResponse("file bytes"),
	})

	b.get("/api/github", Operation{
		Summary:   "Start GitHub OAuth login",
		Tags:      []string{"auth"},
		Responses: map[string]Response{"307": {Description: "redirect to GitHub"}},
	})

	b.get("/api/github/callback", Operation{
		Summary:   "Complete GitHub OAuth login",
		Tags:      []string{"auth"},
		Responses: map[string]Response{"307": {Description: "redirect to the frontend, session cookie set"}},
	})

	b.get("/api/me", Operation{
		Summary:   "Current user profile",
		Tags:      []string{"auth"},
		Responses: okResponse("the signed-in user"),
	})

	doc := &Document{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       "mcjars registry API",
			Description: "Minecraft server build registry and distribution service",
			Version:     version,
		},
		Paths: make(map[string]PathItem),
		Tags: []Tag{
			{Name: "types"}, {Name: "versions"}, {Name: "builds"},
			{Name: "files"}, {Name: "auth"},
		},
	}
	if baseURL != "" {
		doc.Servers = []Server{{URL: baseURL}}
	}
	for path, methods := range b.paths {
		doc.Paths[path] = PathItem{Get: methods}
	}
	return doc
}

// MarshalJSON flattens PathItem.Get's method map directly into the
// object body, since encoding/json can't merge a nested map with `-`
// tags any other way without a custom marshaler.
func (p PathItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]Operation, len(p.Get))
	for method, op := range p.Get {
		out[method] = op
	}
	return json.Marshal(out)
}
