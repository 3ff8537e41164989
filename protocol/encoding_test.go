// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"testing"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/stretchr/testify/require"
)

type unlock struct {
	RequestedFrom string `json:"requestedFrom"`
}

func TestJSONEncoding(t *testing.T) {
	data, err := JSON[unlock]{}.Serialize(unlock{"mobile"})
	require.NoError(t, err)
	require.Equal(t, "application/json", data.ContentType)
	require.Equal(t, mqtt.PayloadFormatUTF8, data.PayloadFormat)
	require.JSONEq(t, `{"requestedFrom":"mobile"}`, string(data.Payload))

	val, err := deserialize[unlock](JSON[unlock]{}, &mqtt.Message{
		Payload: data.Payload,
	})
	require.NoError(t, err)
	require.Equal(t, "mobile", val.RequestedFrom)
}

func TestJSONEncodingErrors(t *testing.T) {
	var pe *PayloadError

	_, err := deserialize[unlock](JSON[unlock]{}, &mqtt.Message{
		Payload: []byte(`{}`),
		PublishOptions: mqtt.PublishOptions{
			ContentType: "application/xml",
		},
	})
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "content type mismatch", pe.Message)
	require.ErrorIs(t, err, ErrUnsupportedContentType)

	_, err = deserialize[unlock](JSON[unlock]{}, &mqtt.Message{
		Payload: []byte(`{`),
	})
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "cannot deserialize payload", pe.Message)

	_, err = serialize[chan int](JSON[chan int]{}, make(chan int))
	require.ErrorAs(t, err, &pe)
}

func TestRawEncoding(t *testing.T) {
	data, err := Raw{}.Serialize([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, mqtt.PayloadFormatBytes, data.PayloadFormat)

	val, err := deserialize[[]byte](Raw{}, &mqtt.Message{
		Payload: []byte{1, 2, 3},
		PublishOptions: mqtt.PublishOptions{
			ContentType: "text/plain",
		},
	})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, val)
}
