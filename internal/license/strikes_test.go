package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrikeStateFor(t *testing.T) {
	assert.Equal(t, StrikeClean, StrikeStateFor(0))
	assert.Equal(t, StrikeClean, StrikeStateFor(-1))
	assert.Equal(t, StrikeWarning, StrikeStateFor(1))
	assert.Equal(t, StrikeWarning, StrikeStateFor(2))
	assert.Equal(t, StrikeSuspended, StrikeStateFor(3))
	assert.Equal(t, StrikeSuspended, StrikeStateFor(4))
}

func TestNextStrikeEscalation(t *testing.T) {
	count := 0

	count, state := NextStrike(count)
	assert.Equal(t, 1, count)
	assert.Equal(t, StrikeWarning, state)

	count, state = NextStrike(count)
	assert.Equal(t, 2, count)
	assert.Equal(t, StrikeWarning, state)

	count, state = NextStrike(count)
	assert.Equal(t, 3, count)
	assert.Equal(t, StrikeSuspended, state)
}
