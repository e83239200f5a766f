package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionTokenRoundTrip(t *testing.T) {
	token := ActionToken("send_code", "BT1001")
	assert.Equal(t, "send_code:BT1001", token)

	action, bookingID, err := ParseActionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "send_code", action)
	assert.Equal(t, "BT1001", bookingID)
}

func TestParseActionToken_BookingIDMayContainSeparator(t *testing.T) {
	action, bookingID, err := ParseActionToken("confirm_code:BT:1001")
	require.NoError(t, err)
	assert.Equal(t, "confirm_code", action)
	assert.Equal(t, "BT:1001", bookingID)
}

func TestParseActionToken_Malformed(t *testing.T) {
	for _, token := range []string{"", "send_code", "send_code:", ":BT1001", ":"} {
		_, _, err := ParseActionToken(token)
		assert.Error(t, err, "token %q", token)
	}
}
