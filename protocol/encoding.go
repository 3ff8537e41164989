// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"encoding/json"
	"errors"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
)

type (
	// Encoding is a translation between a concrete Go type T and encoded data.
	// All methods *must* be thread-safe.
	Encoding[T any] interface {
		Serialize(T) (*Data, error)
		Deserialize(*Data) (T, error)
	}

	// Data represents encoded values along with their transmitted content
	// type and payload format indicator.
	Data struct {
		Payload       []byte
		ContentType   string
		PayloadFormat mqtt.PayloadFormat
	}

	// JSON is a simple implementation of a JSON encoding.
	JSON[T any] struct{}

	// Raw represents a raw byte stream.
	Raw struct{}
)

// ErrUnsupportedContentType should be returned if the content type is not
// supported by this encoding.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Utility to serialize with a payload error.
func serialize[T any](encoding Encoding[T], value T) (*Data, error) {
	data, err := encoding.Serialize(value)
	if err != nil {
		return nil, &PayloadError{
			Message: "cannot serialize payload",
			wrapped: err,
		}
	}
	return data, nil
}

// Utility to deserialize an inbound message with a payload error.
func deserialize[T any](encoding Encoding[T], msg *mqtt.Message) (T, error) {
	value, err := encoding.Deserialize(&Data{
		Payload:       msg.Payload,
		ContentType:   msg.ContentType,
		PayloadFormat: msg.PayloadFormat,
	})
	if err != nil {
		message := "cannot deserialize payload"
		if errors.Is(err, ErrUnsupportedContentType) {
			message = "content type mismatch"
		}
		return value, &PayloadError{
			Message:     message,
			ContentType: msg.ContentType,
			wrapped:     err,
		}
	}
	return value, nil
}

// Serialize translates the Go type T into JSON bytes.
func (JSON[T]) Serialize(t T) (*Data, error) {
	bytes, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return &Data{bytes, "application/json", mqtt.PayloadFormatUTF8}, nil
}

// Deserialize translates JSON bytes into the Go type T.
func (JSON[T]) Deserialize(data *Data) (T, error) {
	var t T
	switch data.ContentType {
	case "", "application/json":
		err := json.Unmarshal(data.Payload, &t)
		return t, err
	default:
		return t, ErrUnsupportedContentType
	}
}

// Serialize returns the bytes unchanged.
func (Raw) Serialize(t []byte) (*Data, error) {
	return &Data{t, "application/octet-stream", mqtt.PayloadFormatBytes}, nil
}

// Deserialize returns the bytes unchanged, whatever their content type.
func (Raw) Deserialize(data *Data) ([]byte, error) {
	return data.Payload, nil
}
