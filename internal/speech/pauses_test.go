package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalPauses(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Relax.", "Relax..."},
		{"Now,rest", "Now, rest"},
		{"Gently return", "... Gently... return"},
		{"Take a deep breath.", "... Take a deep breath... ..."},
		{"  many    spaces  ", "many spaces"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, naturalPauses(tt.in), tt.in)
	}
}
