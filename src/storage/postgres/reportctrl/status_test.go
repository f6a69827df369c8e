package reportctrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	for _, status := range Statuses() {
		assert.True(t, ValidStatus(status), status)
	}

	assert.False(t, ValidStatus("DONE"))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("new"))
}
