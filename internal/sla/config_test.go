package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

func TestDefaultTable_IsValidAndIndependent(t *testing.T) {
	a := DefaultTable()
	require.NoError(t, a.Validate())

	a[domain.TicketPriorityHigh] = Config{}
	a[domain.TicketPriorityMedium].WorkingDays[0] = Sunday

	b := DefaultTable()
	assert.Equal(t, 4, b[domain.TicketPriorityHigh].ResponseHours)
	assert.Equal(t, Monday, b[domain.TicketPriorityMedium].WorkingDays[0])
	assert.False(t, b[domain.TicketPriorityCritical].WorkingHoursOnly)
}

func TestConfigValidate(t *testing.T) {
	base := DefaultTable()[domain.TicketPriorityMedium]

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty window", func(c *Config) { c.WorkingHours = WorkingHours{Start: 9, End: 9} }},
		{"inverted window", func(c *Config) { c.WorkingHours = WorkingHours{Start: 18, End: 9} }},
		{"hour out of range", func(c *Config) { c.WorkingHours = WorkingHours{Start: 9, End: 24} }},
		{"no working days", func(c *Config) { c.WorkingDays = nil }},
		{"bad weekday", func(c *Config) { c.WorkingDays = []Weekday{0} }},
		{"negative budget", func(c *Config) { c.ResolutionHours = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.WorkingDays = append([]Weekday(nil), base.WorkingDays...)
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidSLAConfig)
		})
	}
}

func TestTableValidate_MissingPriority(t *testing.T) {
	table := DefaultTable()
	delete(table, domain.TicketPriorityLow)

	_, err := NewEngine(table)
	assert.ErrorIs(t, err, ErrInvalidSLAConfig)
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, Monday, ISOWeekday(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Sunday, ISOWeekday(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "45m", FormatRemaining(45))
	assert.Equal(t, "2h", FormatRemaining(120))
	assert.Equal(t, "2h 5m", FormatRemaining(125))
	assert.Equal(t, "1g", FormatRemaining(1440))
	assert.Equal(t, "3g 4h", FormatRemaining(3*1440+4*60+10))
}

func TestHoursRemaining(t *testing.T) {
	due := time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, HoursRemaining(due, due.Add(-119*time.Minute)))
	assert.Equal(t, 0, HoursRemaining(due, due.Add(time.Minute)))
}
