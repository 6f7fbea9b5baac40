package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	serverName     = "io.github.grahambrooks/refscope"
	serverImage    = "ghcr.io/grahambrooks/refscope"
)

// Manifest is the MCP registry server.json document.
type Manifest struct {
	Schema      string        `json:"$schema"`
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	Repository  *Repository   `json:"repository,omitempty"`
	Packages    []PackageSpec `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// PackageSpec is one way of launching the server. The image runs refscope
// with the arguments listed, talking MCP over stdio.
type PackageSpec struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVariable `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVariable documents an environment variable the server reads.
type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"isRequired"`
}

type Transport struct {
	Type string `json:"type"`
}

// GenerateManifest renders server.json for a release. A leading "v" on the
// version tag is dropped; an empty version becomes 0.0.0.
func GenerateManifest(version string) ([]byte, error) {
	version = strings.TrimPrefix(version, "v")
	if version == "" || version == "dev" {
		version = "0.0.0"
	}

	m := Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Title:       "refscope",
		Description: "Symbol binding, scope and reference resolution: dead code, safe deletion, usages and file dependencies",
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/grahambrooks/refactor-dsl-sub001",
			Source: "github",
		},
		Packages: []PackageSpec{{
			RegistryType:     "oci",
			Identifier:       serverImage + ":" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			EnvironmentVariables: []EnvVariable{{
				Name:        "REFSCOPE_CONFIG",
				Description: "Path to a refscope.toml, .yaml or .json configuration file",
			}},
			Transport: Transport{Type: "stdio"},
		}},
	}
	return json.MarshalIndent(m, "", "  ")
}
