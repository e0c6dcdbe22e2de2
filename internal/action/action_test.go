package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecision(t *testing.T) {
	d := NewDecision()
	assert.Equal(t, Continue, d.State)
	assert.Nil(t, d.HTTPCode)

	d.SetCode(Done, []byte("403"))
	assert.Equal(t, Done, d.State)
	assert.Equal(t, "403", string(d.HTTPCode))

	d.SetResponse(Done, []byte("QUEUE"), []byte("http://c.queue-it.net/"))
	assert.Equal(t, "QUEUE", string(d.HTTPCode))
	assert.Equal(t, "http://c.queue-it.net/", string(d.ResponseData))

	d.Set(Continue)
	assert.Equal(t, Continue, d.State)
}
