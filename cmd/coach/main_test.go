package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeThenStats(t *testing.T) {
	t.Setenv("COACH_STORAGE_DRIVER", "file")
	t.Setenv("COACH_STORAGE_PATH", t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runAnalyze([]string{
		"-text", "I led the migration and we shipped it two weeks early.",
		"-duration", "20",
		"-type", "Behavioral",
	}, strings.NewReader(""), &out))

	var analyzed struct {
		Session struct {
			QuestionType string `json:"questionType"`
			AIPowered    bool   `json:"aiPowered"`
		} `json:"session"`
		Provider string `json:"provider"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &analyzed))
	assert.Equal(t, "Behavioral", analyzed.Session.QuestionType)
	assert.False(t, analyzed.Session.AIPowered)
	assert.Equal(t, "fallback", analyzed.Provider)

	out.Reset()
	require.NoError(t, runStats([]string{"-variant", "basic"}, &out))
	var stats struct {
		TotalSessions int `json:"totalSessions"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalSessions)

	out.Reset()
	require.NoError(t, runClear(nil, &out))
	out.Reset()
	require.NoError(t, runSessions([]string{"-variant", "enhanced"}, &out))
	assert.JSONEq(t, "[]", out.String())
}

func TestAnalyzeRequiresOneInput(t *testing.T) {
	assert.Error(t, runAnalyze(nil, strings.NewReader(""), &bytes.Buffer{}))
	assert.Error(t, runAnalyze([]string{"-text", "hi", "-file", "a.wav"}, strings.NewReader(""), &bytes.Buffer{}))
}

func TestAnalyzeBlankStdinRecordsEmptySession(t *testing.T) {
	t.Setenv("COACH_STORAGE_DRIVER", "file")
	t.Setenv("COACH_STORAGE_PATH", t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runAnalyze([]string{"-text", "-"}, strings.NewReader("  \n\t"), &out))

	var analyzed struct {
		Session struct {
			OverallScore int `json:"overallScore"`
		} `json:"session"`
		Provider       string `json:"provider"`
		FallbackReason string `json:"fallback_reason"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &analyzed))
	assert.Zero(t, analyzed.Session.OverallScore)
	assert.Equal(t, "fallback", analyzed.Provider)
	assert.Contains(t, analyzed.FallbackReason, "empty transcript")

	out.Reset()
	require.NoError(t, runStats([]string{"-variant", "basic"}, &out))
	var stats struct {
		TotalSessions int `json:"totalSessions"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalSessions)
}
