package notifications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Lookup_FallbackTiers(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.RegisterGeneric(EventUpdated, Template{Title: "generic", Body: "g"})
	c.Register("deal", EventUpdated, Template{Title: "specific", Body: "s"})

	tpl, ok := c.Lookup("deal", EventUpdated)
	require.True(t, ok)
	assert.Equal(t, "specific", tpl.Title, "entity tier wins over generic")

	tpl, ok = c.Lookup("lead", EventUpdated)
	require.True(t, ok)
	assert.Equal(t, "generic", tpl.Title)

	_, ok = c.Lookup("lead", EventDeleted)
	assert.False(t, ok, "no tier matched")
}

func TestDefaultCatalog_CoversAllEventTypes(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	for _, et := range []EventType{
		EventCreated, EventUpdated, EventDeleted,
		EventStatusChanged, EventAssigned, EventCommented,
	} {
		_, ok := c.Lookup("unknown-entity", et)
		assert.True(t, ok, "generic fallback for %s", et)
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	t.Run("overrides merge over defaults", func(t *testing.T) {
		t.Parallel()

		in := strings.NewReader(`
templates:
  deal.status_changed:
    title: "Deal moved"
    body: "{entity_ref} '{entity_name}' moved stage"
  commented:
    title: "New reply"
    body: "{actor} replied on {entity_ref} '{entity_name}'"
`)
		c, err := LoadCatalog(in)
		require.NoError(t, err)

		tpl, ok := c.Lookup("deal", EventStatusChanged)
		require.True(t, ok)
		assert.Equal(t, "Deal moved", tpl.Title)

		tpl, ok = c.Lookup("goal", EventCommented)
		require.True(t, ok)
		assert.Equal(t, "New reply", tpl.Title)

		// Untouched defaults survive the merge.
		tpl, ok = c.Lookup("lead", EventCreated)
		require.True(t, ok)
		assert.Equal(t, "New {entity_type}", tpl.Title)
	})

	t.Run("unknown event type rejected", func(t *testing.T) {
		t.Parallel()

		_, err := LoadCatalog(strings.NewReader(`
templates:
  deal.exploded:
    title: "boom"
`))
		assert.ErrorIs(t, err, ErrInvalidEventType)
	})

	t.Run("unknown generic key rejected", func(t *testing.T) {
		t.Parallel()

		_, err := LoadCatalog(strings.NewReader(`
templates:
  exploded:
    title: "boom"
`))
		assert.ErrorIs(t, err, ErrInvalidEventType)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := LoadCatalog(strings.NewReader("templates: ["))
		assert.Error(t, err)
	})
}

func TestTemplate_Render(t *testing.T) {
	t.Parallel()

	tpl := Template{
		Title: "{entity_type} {action}",
		Body:  "{entity_ref} '{entity_name}' has been {action}{changes}",
	}
	title, body := tpl.render(map[string]string{
		"entity_type": "deal",
		"entity_name": "Acme",
		"entity_ref":  "your deal",
		"action":      "updated",
		"changes":     " (stage: won)",
	})

	assert.Equal(t, "deal updated", title)
	assert.Equal(t, "your deal 'Acme' has been updated (stage: won)", body)
}

func TestFormatChanges(t *testing.T) {
	t.Parallel()

	assert.Empty(t, formatChanges(nil))
	assert.Empty(t, formatChanges(map[string]string{}))
	assert.Equal(t, " (a: one, b: two)", formatChanges(map[string]string{
		"b": "two",
		"a": "one",
	}), "fields sorted by name")
}
