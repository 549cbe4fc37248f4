package format

import "encoding/json"

// JSONFormatter is the one concrete formatter the ambient stack needs to
// exercise the registry end to end; it is not a content-negotiation engine.
type JSONFormatter struct{}

func (JSONFormatter) MediaTypes() []string { return []string{"application/json"} }

func (JSONFormatter) Format(obj any, _ string) ([]byte, error) {
	return json.Marshal(obj)
}
