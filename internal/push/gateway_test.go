package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTopic(t *testing.T) {
	assert.True(t, matchTopic("ticks.raw.fop.TXFR1", "ticks.raw.fop.TXFR1"))
	assert.True(t, matchTopic("ticks.raw.fop.*", "ticks.raw.fop.TXFR1"))
	assert.True(t, matchTopic("ticks.raw.*.*", "ticks.raw.stk.2330"))
	assert.True(t, matchTopic("ticks.kbar.1m.*", "ticks.kbar.1m.TXFR1"))

	assert.False(t, matchTopic("ticks.raw.fop.TXFR1", "ticks.raw.fop.TMFR1"))
	assert.False(t, matchTopic("ticks.raw.*", "ticks.raw.fop.TXFR1"))
	assert.False(t, matchTopic("ticks.kbar.1m.*", "ticks.raw.fop.TXFR1"))
}
