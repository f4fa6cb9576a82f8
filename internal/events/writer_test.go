package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPublisherFlushesSmallBatchesQuickly(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "news_analyzed")
	t.Cleanup(func() { _ = p.Close() })

	require.Equal(t, BatchTimeout, p.writer.BatchTimeout)
	require.Equal(t, "news_analyzed", p.writer.Topic)
}
