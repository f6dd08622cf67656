package theme

import (
	"testing"

	"github.com/theirongolddev/tripburn/internal/model"
)

func TestForCategoryDistinct(t *testing.T) {
	for _, th := range []Theme{FlexokiDark, CatppuccinMocha, TokyoNight} {
		seen := make(map[string]model.Category)
		for _, c := range model.Categories {
			color := string(th.ForCategory(c))
			if prev, ok := seen[color]; ok {
				t.Errorf("%s: %s and %s share color %s", th.Name, prev, c, color)
			}
			seen[color] = c
		}
	}
}

func TestByNameFallsBack(t *testing.T) {
	if got := ByName("tokyo-night").Name; got != "tokyo-night" {
		t.Errorf("ByName(tokyo-night) = %q", got)
	}
	if got := ByName("nope").Name; got != FlexokiDark.Name {
		t.Errorf("ByName(nope) = %q, want fallback", got)
	}
	if len(Names()) != len(All) {
		t.Errorf("Names() = %v", Names())
	}
}
