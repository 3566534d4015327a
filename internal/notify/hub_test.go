package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDeliversToRegisteredClient(t *testing.T) {
	h := NewHub()
	c := NewClient("s1", nil)
	h.Register(c)

	h.Send("s1", Event{Type: EventShiftAlert, EndLocalTime: "17:00"})

	require.Len(t, c.Send, 1)
	assert.Contains(t, string(<-c.Send), EventShiftAlert)
}

func TestSendToUnknownStaffIsANoOp(t *testing.T) {
	h := NewHub()
	h.Send("nobody", Event{Type: EventUnTimeAlert})
	assert.Empty(t, h.clients)
}

func TestUnregisterDropsEmptyStaffEntry(t *testing.T) {
	h := NewHub()
	c := NewClient("s1", nil)
	h.Register(c)
	h.Unregister(c)

	assert.Empty(t, h.clients)
	_, open := <-c.Send
	assert.False(t, open, "send channel closed on unregister")
}

func TestSendDropsSlowClientAndStaffEntry(t *testing.T) {
	h := NewHub()
	c := NewClient("s1", nil)
	h.Register(c)

	// Fill the send buffer so the next delivery cannot proceed.
	for i := 0; i < cap(c.Send); i++ {
		c.Send <- []byte("x")
	}
	h.Send("s1", Event{Type: EventShiftAlert})

	assert.Empty(t, h.clients, "dropping the last client removes the staff entry")

	// Registering again must start from a clean slate.
	c2 := NewClient("s1", nil)
	h.Register(c2)
	h.Send("s1", Event{Type: EventUnTimeAlert})
	assert.Len(t, c2.Send, 1)
}
