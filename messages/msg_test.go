package messages

import (
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestMsgFrom(t *testing.T) {
	t.Run("message is wrapped with its type and document", func(t *testing.T) {
		msg, err := MsgFrom(&PingRequest{
			Type:      TypePingRequest,
			Timestamp: time.Now(),
			RequestID: 42,
		})
		require.NoError(t, err)
		require.Equal(t, TypePingRequest, msg.Type)

		var req PingRequest
		require.NoError(t, msg.DataTo(&req))
		require.Equal(t, uint32(42), req.RequestID)
	})

	t.Run("message with an empty type is rejected", func(t *testing.T) {
		_, err := MsgFrom(&PingRequest{RequestID: 42})
		require.Error(t, err)
	})
}

func TestMsgDataTo(t *testing.T) {
	raw := []byte(`{"type":"set_pointcloud_downsample","request_id":7,"factor":3}`)

	var envelope struct {
		Type Type `json:"type"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.Equal(t, TypeSetPointCloudDownsample, envelope.Type)

	msg := Msg{Type: envelope.Type, Data: raw}

	var req SetPointCloudDownsampleRequest
	require.NoError(t, msg.DataTo(&req))
	require.Equal(t, uint32(7), req.RequestID)
	require.Equal(t, 3, req.Factor)
}

func TestMsgTypeString(t *testing.T) {
	require.Equal(t, "frame", Msg{Type: TypeFrame}.TypeString())
	require.Equal(t, "unknown", Msg{}.TypeString())
}
