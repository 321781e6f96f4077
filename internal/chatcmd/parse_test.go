package chatcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want Command
	}{
		{"/inizio_giornata Mario Rossi", ShiftStart{EmployeeName: "Mario Rossi", FirstName: "Mario", LastName: "Rossi"}},
		{"  /INIZIO_GIORNATA   Anna Maria   De Luca  ", ShiftStart{EmployeeName: "Anna Maria De Luca", FirstName: "Anna", LastName: "Maria De Luca"}},
		{"/fine_giornata", ShiftEnd{}},
		{"/Fine_Giornata \n", ShiftEnd{}},
		{"/help", Help{}},
		{"hello", Unrecognized{Text: "hello"}},
		{"/fine_giornata adesso", Unrecognized{Text: "/fine_giornata adesso"}},
		{"/inizio_giornataMario Rossi", Unrecognized{Text: "/inizio_giornataMario Rossi"}},
		{"/ferie", Unrecognized{Text: "/ferie"}},
		{"", Unrecognized{Text: ""}},
	}
	for _, tc := range tests {
		got, err := Parse(tc.text)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestParse_MalformedStart(t *testing.T) {
	for _, text := range []string{"/inizio_giornata Mario", "/inizio_giornata", "/inizio_giornata    "} {
		_, err := Parse(text)
		assert.ErrorIs(t, err, ErrMalformedCommand, text)
	}
}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/fine_giornata"))
	assert.True(t, IsCommand("   /qualsiasi"))
	assert.False(t, IsCommand("ciao /fine_giornata"))
	assert.False(t, IsCommand(""))
}
