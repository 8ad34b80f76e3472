package speech

import (
	"context"
	"strings"

	"github.com/hammamikhairi/meditate/internal/domain"
)

const (
	minMeditationVoices = 5
	extraPremadeVoices  = 10
	maxPremadeFallback  = 15
)

var (
	calmDescriptors = []string{"calm", "gentle", "warm", "professional"}
	calmNames       = []string{"sarah", "rachel", "laura", "aria", "jessica", "alice", "matilda", "lily"}
)

// MeditationVoices narrows a full catalog to premade voices that suit
// guided meditation. When fewer than five match, up to ten other premade
// voices are appended; when none match, the first fifteen premade voices
// are returned instead.
func MeditationVoices(all []domain.Voice) []domain.Voice {
	var picked []domain.Voice
	seen := make(map[string]bool)
	for _, v := range all {
		if isPremade(v) && suitsMeditation(v) {
			picked = append(picked, v)
			seen[v.ID] = true
		}
	}

	if len(picked) < minMeditationVoices {
		added := 0
		for _, v := range all {
			if added == extraPremadeVoices {
				break
			}
			if isPremade(v) && !seen[v.ID] {
				picked = append(picked, v)
				seen[v.ID] = true
				added++
			}
		}
	}

	if len(picked) == 0 {
		for _, v := range all {
			if len(picked) == maxPremadeFallback {
				break
			}
			if isPremade(v) {
				picked = append(picked, v)
			}
		}
	}
	return picked
}

func isPremade(v domain.Voice) bool {
	return v.Category == "premade"
}

func suitsMeditation(v domain.Voice) bool {
	if v.Labels["gender"] == "female" {
		return true
	}
	desc := v.Labels["descriptive"]
	for _, d := range calmDescriptors {
		if strings.Contains(desc, d) {
			return true
		}
	}
	name := strings.ToLower(v.Name)
	for _, n := range calmNames {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// MeditationCatalog filters another catalog through MeditationVoices.
type MeditationCatalog struct {
	src domain.VoiceCatalog
}

// NewMeditationCatalog wraps src.
func NewMeditationCatalog(src domain.VoiceCatalog) *MeditationCatalog {
	return &MeditationCatalog{src: src}
}

// Voices returns the meditation-friendly subset of the wrapped catalog.
func (c *MeditationCatalog) Voices(ctx context.Context) ([]domain.Voice, error) {
	all, err := c.src.Voices(ctx)
	if err != nil {
		return nil, err
	}
	return MeditationVoices(all), nil
}
