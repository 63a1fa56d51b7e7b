package registry

import (
	"encoding/json"

	"gopkg.in/yaml.v2"
)

/*
Codec defines how structured values are converted to and from the string payloads stored in the registry.
*/
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
	//Mime type of the encoded payloads, for logging and debugging
	ContentType() string
}

type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) ContentType() string {
	return "application/json"
}

type YAMLCodec struct{}

func (YAMLCodec) Marshal(v interface{}) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Unmarshal(data []byte, v interface{}) error {
	return yaml.Unmarshal(data, v)
}

func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}
