package session

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageReportsUnencodablePayload(t *testing.T) {
	msg := newMessage(TypeFrame, map[string]float64{"x": math.NaN()})
	require.Equal(t, TypeError, msg.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, TypeFrame, p.Ref)
	assert.Contains(t, p.Message, "encode frame")
}
