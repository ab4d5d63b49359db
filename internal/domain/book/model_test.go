package book

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_UnmarshalKeepsPassThroughFields(t *testing.T) {
	payload := `{"id":"42","title":"Ми з Україні","author":"Іван Малкович","available":true,` +
		`"cover_url":"https://res.cloudinary.com/stefa/42.jpg","price_uah":95,"qty_available":3}`

	var b Book
	require.NoError(t, json.Unmarshal([]byte(payload), &b))

	assert.Equal(t, "42", b.ID)
	assert.True(t, b.Available)
	assert.Len(t, b.Attributes, 3)

	var price int
	ok, err := b.Attribute("price_uah", &price)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 95, price)

	ok, err = b.Attribute("isbn", &price)
	require.NoError(t, err)
	assert.False(t, ok)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(out))
}

func TestApply_MergesOnlySuppliedFields(t *testing.T) {
	original := Book{ID: "1", Title: "A", Author: "B", Category: "fiction"}
	title := "C"

	got := Apply(original, Patch{Title: &title})

	want := Book{ID: "1", Title: "C", Author: "B", Category: "fiction"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_AttributesAreMergedNotReplaced(t *testing.T) {
	original := Book{
		ID: "1", Title: "A", Author: "B",
		Attributes: map[string]json.RawMessage{"price_uah": json.RawMessage(`100`), "cover_url": json.RawMessage(`"x"`)},
	}
	available := true

	got := Apply(original, Patch{
		Available:  &available,
		Attributes: map[string]json.RawMessage{"price_uah": json.RawMessage(`80`)},
	})

	assert.True(t, got.Available)
	assert.Equal(t, json.RawMessage(`80`), got.Attributes["price_uah"])
	assert.Equal(t, json.RawMessage(`"x"`), got.Attributes["cover_url"])
	// Исходная книга не должна меняться
	assert.Equal(t, json.RawMessage(`100`), original.Attributes["price_uah"])
}
