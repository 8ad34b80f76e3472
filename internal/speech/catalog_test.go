package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/meditate/internal/domain"
)

func voice(id, name, category string, labels map[string]string) domain.Voice {
	return domain.Voice{ID: id, Name: name, Category: category, Labels: labels}
}

func ids(voices []domain.Voice) []string {
	out := make([]string, len(voices))
	for i, v := range voices {
		out[i] = v.ID
	}
	return out
}

func TestMeditationVoicesFilter(t *testing.T) {
	all := []domain.Voice{
		voice("1", "Sarah", "premade", nil),
		voice("2", "Adam", "premade", map[string]string{"gender": "male"}),
		voice("3", "Nova", "premade", map[string]string{"gender": "female"}),
		voice("4", "Bill", "premade", map[string]string{"descriptive": "warm"}),
		voice("5", "Lily Clone", "cloned", nil),
		voice("6", "Matilda", "premade", nil),
		voice("7", "Brian", "premade", map[string]string{"descriptive": "calm and deep"}),
		voice("8", "George", "premade", map[string]string{"descriptive": "raspy"}),
	}

	got := MeditationVoices(all)
	assert.Equal(t, []string{"1", "3", "4", "6", "7"}, ids(got))
}

func TestMeditationVoicesTopsUpShortList(t *testing.T) {
	all := []domain.Voice{voice("r", "Rachel", "premade", nil)}
	for i := range 15 {
		all = append(all, voice(fmt.Sprintf("m%d", i), "Man", "premade", nil))
	}

	got := MeditationVoices(all)
	require.Len(t, got, 11)
	assert.Equal(t, "r", got[0].ID)
	assert.Equal(t, "m0", got[1].ID)
	assert.Equal(t, "m9", got[10].ID)
}

func TestMeditationVoicesNoPremade(t *testing.T) {
	all := []domain.Voice{voice("c", "Sarah", "cloned", nil)}
	assert.Empty(t, MeditationVoices(all))
}

type stubCatalog struct {
	voices []domain.Voice
	err    error
}

func (s stubCatalog) Voices(context.Context) ([]domain.Voice, error) { return s.voices, s.err }

func TestMeditationCatalog(t *testing.T) {
	c := NewMeditationCatalog(stubCatalog{voices: []domain.Voice{
		voice("1", "Aria", "premade", nil),
		voice("2", "Custom", "generated", nil),
	}})
	got, err := c.Voices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))

	boom := errors.New("boom")
	_, err = NewMeditationCatalog(stubCatalog{err: boom}).Voices(context.Background())
	assert.ErrorIs(t, err, boom)
}
