package game

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedAttachments int

func (f fixedAttachments) AttachmentCount() int { return int(f) }

func TestGameMetricsSystem_LogsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	bs, _, _ := createTestBeamSystem(0, 4)
	_, _, err := bs.Fire(lookDown)
	require.NoError(t, err)

	gt := NewGameTicker(20, zerolog.Nop())
	metrics := NewGameMetricsSystem(gt, bs, fixedAttachments(7), time.Hour, logger)
	gt.RegisterSystem(metrics)

	gt.Step()
	gt.Step()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "second tick falls inside the interval")
	assert.Contains(t, lines[0], `"message":"game metrics"`)
	assert.Contains(t, lines[0], `"beams":1`)
	assert.Contains(t, lines[0], `"attachments":7`)
	assert.Equal(t, 200, metrics.GetPriority())
	assert.Equal(t, []string{"GameMetricsSystem"}, gt.Systems())
}
