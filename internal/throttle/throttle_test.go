package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowOncePerInterval(t *testing.T) {
	now := time.Unix(1000, 0)
	th := New(5*time.Second, func() time.Time { return now })

	assert.True(t, th.Allow(), "first event always passes")
	assert.False(t, th.Allow())

	now = now.Add(4999 * time.Millisecond)
	assert.False(t, th.Allow())

	now = now.Add(time.Millisecond)
	assert.True(t, th.Allow())
	assert.False(t, th.Allow())
}
