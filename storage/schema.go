package storage

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of config.json.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(Config))
	schema.Title = "retroplayer configuration"
	schema.Description = "Validates config.json"
	return schema
}
