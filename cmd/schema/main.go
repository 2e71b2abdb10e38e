package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/content"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
)

func main() {
	var outPath, target string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.StringVar(&target, "target", "protocol", "schema to generate: protocol or content")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	var doc any
	switch target {
	case "protocol":
		doc = protocolSchemas()
	case "content":
		doc = contentSchema()
	default:
		fmt.Fprintf(os.Stderr, "unknown target %q\n", target)
		os.Exit(1)
	}

	if err := writeSchema(outPath, doc); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{AllowAdditionalProperties: true}
}

// protocolSchemas keys each payload schema by "<direction>/<type>".
func protocolSchemas() map[string]*jsonschema.Schema {
	r := reflector()
	out := make(map[string]*jsonschema.Schema)
	for _, spec := range proto.Messages() {
		schema := r.Reflect(spec.Payload)
		schema.Title = spec.Type
		schema.Description = fmt.Sprintf("payload of %s sent by the %s", spec.Type, spec.Direction)
		out[string(spec.Direction)+"/"+spec.Type] = schema
	}
	return out
}

func contentSchema() *jsonschema.Schema {
	r := reflector()
	r.PreferYAMLSchema = true
	schema := r.Reflect(new(content.Bundle))
	schema.Title = "Dungeon Content Bundle"
	schema.Description = "Validates catalogs, parties and dungeons loaded by the server"
	return schema
}

func writeSchema(outPath string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
