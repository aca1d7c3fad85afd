package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skatetrax/ice-maker/internal/model"
)

func TestFormatStatus(t *testing.T) {
	ran := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	byStatus := map[model.VerificationStatus]int{
		model.StatusUnverified:   12,
		model.StatusGeocodeMatch: 340,
		model.StatusDuplicate:    55,
	}
	sources := []model.Source{
		{Name: "sk8stuff", Enabled: true, LastRunAt: &ran, LastRunStatus: model.RunSuccess, LastRunCount: 412},
		{Name: "fandom_wiki", Enabled: false},
	}

	var buf bytes.Buffer
	formatStatus(&buf, 500, byStatus, 340, 9, sources)

	output := buf.String()
	assert.Contains(t, output, "raw entries")
	assert.Contains(t, output, "500")
	assert.Contains(t, output, "candidates geocode_match")
	assert.Contains(t, output, "unreviewed rejections")
	assert.Contains(t, output, "sk8stuff")
	assert.Contains(t, output, "2026-03-01T06:00:00Z")
	assert.Contains(t, output, "success")

	// A source that has never run shows "never", not a zero time.
	assert.Contains(t, output, "never")

	// Statuses with no rows stay off the report entirely.
	assert.NotContains(t, output, "geocode_failed")
}

func TestFormatStatus_NoSources(t *testing.T) {
	var buf bytes.Buffer
	formatStatus(&buf, 0, nil, 0, 0, nil)

	output := buf.String()
	assert.Contains(t, output, "raw entries")
	assert.NotContains(t, output, "SOURCE")
}
