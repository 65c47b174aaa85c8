package redis

import (
	"testing"

	"github.com/Spiderbuttons/autosort/item"
)

func TestFieldKeyRoundTrip(t *testing.T) {
	t.Parallel()

	stacks := []item.Stack{
		{Name: "carrot", Category: "vegetable", CategoryNum: -75},
		{Name: "pipe|wrench", Category: "tool", CategoryNum: -99},
		{Name: "odd|name|here", Category: "misc|stuff", CategoryNum: 3},
		{Name: "50% off", Category: "sale", CategoryNum: 1},
		{Name: "plain name", Category: "", CategoryNum: 0},
	}

	for _, want := range stacks {
		got := parseFieldKey(fieldKey(want))
		if got.Name != want.Name || got.Category != want.Category || got.CategoryNum != want.CategoryNum {
			t.Errorf("round trip of %+v = %+v", want, got)
		}
	}
}

func TestParseFieldKeyUnescapedLegacy(t *testing.T) {
	t.Parallel()

	// Fields written before escaping was introduced parse unchanged.
	st := parseFieldKey("carrot|vegetable|-75")
	if st.Name != "carrot" || st.Category != "vegetable" || st.CategoryNum != -75 {
		t.Errorf("legacy field parsed as %+v", st)
	}
}
