package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/events"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	articles := []models.AnalyzedArticle{
		{Title: "One", Link: "https://a.example/1", Bias: "Left", Sentiment: 0.2},
		{Title: "Two", Link: "https://a.example/2", Bias: "Neutral"},
	}

	msgs, err := events.BuildMessages("elections", at, articles)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "https://a.example/2", string(msgs[1].Key))

	var ev models.AnalysisEvent
	require.NoError(t, json.Unmarshal(msgs[0].Value, &ev))
	require.Equal(t, "elections", ev.Topic)
	require.True(t, at.Equal(ev.AnalyzedAt))
	require.Equal(t, articles[0], ev.Article)
}

func TestBuildMessagesEmpty(t *testing.T) {
	msgs, err := events.BuildMessages("x", time.Now(), nil)
	require.NoError(t, err)
	require.Empty(t, msgs)
}
