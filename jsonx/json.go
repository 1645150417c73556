// Package jsonx is the JSON codec used by the CLI and the status endpoint
package jsonx

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(v interface{}) ([]byte, error) {
	return jsonx.Marshal(v)
}

func MarshalIndent(v interface{}) ([]byte, error) {
	return jsonx.MarshalIndent(v, "", "  ")
}

func Unmarshal(data []byte, v interface{}) error {
	return jsonx.Unmarshal(data, v)
}

// WriteJSON encodes v to w followed by a newline
func WriteJSON(w io.Writer, v interface{}) error {
	return jsonx.NewEncoder(w).Encode(v)
}
