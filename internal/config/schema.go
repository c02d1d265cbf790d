package config

import (
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// Schema describes the YAML config file as JSON schema.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Go duration, e.g. 30s or 5m",
				}
			}
			return nil
		},
	}
	schema := reflector.Reflect(&Config{})
	schema.Title = "bot-trading-simulazione configuration"
	return schema
}
