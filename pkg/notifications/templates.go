package notifications

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is one message template. Title and Body may contain the
// placeholders {entity_type}, {entity_name}, {entity_ref}, {action},
// {actor} and {changes}, substituted by the builder at render time.
type Template struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Catalog holds message templates keyed by (entityType, eventType) with an
// eventType-only fallback tier. Lookup never fails: when neither tier has
// an entry the builder falls back to a minimal built-in template.
type Catalog struct {
	entity  map[string]Template // "entityType.eventType"
	generic map[EventType]Template
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entity:  make(map[string]Template),
		generic: make(map[EventType]Template),
	}
}

// Register adds an entity-specific template.
func (c *Catalog) Register(entityType string, eventType EventType, tpl Template) {
	c.entity[catalogKey(entityType, eventType)] = tpl
}

// RegisterGeneric adds an eventType-only fallback template.
func (c *Catalog) RegisterGeneric(eventType EventType, tpl Template) {
	c.generic[eventType] = tpl
}

// Lookup resolves a template for the given entity and event, falling back
// from the entity-specific tier to the generic tier. The second return
// value is false when only the built-in minimal template remains.
func (c *Catalog) Lookup(entityType string, eventType EventType) (Template, bool) {
	if tpl, ok := c.entity[catalogKey(entityType, eventType)]; ok {
		return tpl, true
	}
	if tpl, ok := c.generic[eventType]; ok {
		return tpl, true
	}
	return Template{}, false
}

func catalogKey(entityType string, eventType EventType) string {
	return entityType + "." + string(eventType)
}

// catalogFile is the YAML layout for LoadCatalog:
//
//	templates:
//	  deal.status_changed:
//	    title: "Deal status changed"
//	    body: "{entity_ref} '{entity_name}' moved stage"
//	  updated:
//	    title: "{entity_type} updated"
//	    body: "{entity_ref} '{entity_name}' has been updated"
//
// Keys with a dot are entity-specific; bare keys are event-level fallbacks.
type catalogFile struct {
	Templates map[string]Template `yaml:"templates"`
}

// LoadCatalog reads template overrides from YAML and merges them over the
// default catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode template catalog: %w", err)
	}

	c := DefaultCatalog()
	for key, tpl := range file.Templates {
		if entityType, eventType, ok := strings.Cut(key, "."); ok {
			if !EventType(eventType).Valid() {
				return nil, fmt.Errorf("template %q: %w", key, ErrInvalidEventType)
			}
			c.Register(entityType, EventType(eventType), tpl)
			continue
		}
		if !EventType(key).Valid() {
			return nil, fmt.Errorf("template %q: %w", key, ErrInvalidEventType)
		}
		c.RegisterGeneric(EventType(key), tpl)
	}
	return c, nil
}

// DefaultCatalog returns the built-in CRM template set: entity-specific
// templates for the four core entity types plus generic per-event
// fallbacks for everything else.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	for _, et := range []EventType{
		EventCreated, EventUpdated, EventDeleted,
		EventStatusChanged, EventAssigned, EventCommented,
	} {
		c.RegisterGeneric(et, Template{
			Title: "{entity_type} {action}",
			Body:  "{entity_type} '{entity_name}' has been {action}",
		})
	}

	for _, entityType := range []string{"activity", "lead", "deal", "customer"} {
		c.Register(entityType, EventCreated, Template{
			Title: "New {entity_type}",
			Body:  "{entity_ref} '{entity_name}' has been created",
		})
		c.Register(entityType, EventUpdated, Template{
			Title: "{entity_type} updated",
			Body:  "{entity_ref} '{entity_name}' has been updated{changes}",
		})
		c.Register(entityType, EventDeleted, Template{
			Title: "{entity_type} deleted",
			Body:  "{entity_ref} '{entity_name}' has been deleted",
		})
		c.Register(entityType, EventStatusChanged, Template{
			Title: "{entity_type} status changed",
			Body:  "Status of {entity_ref} '{entity_name}' has changed{changes}",
		})
		c.Register(entityType, EventAssigned, Template{
			Title: "{entity_type} assigned",
			Body:  "{entity_ref} '{entity_name}' has been assigned{changes}",
		})
		c.Register(entityType, EventCommented, Template{
			Title: "New comment on {entity_type}",
			Body:  "{actor} commented on {entity_ref} '{entity_name}'",
		})
	}

	return c
}

// minimalTemplate is the last-resort template: the builder must never fail
// to produce some message.
var minimalTemplate = Template{
	Title: "{entity_type} changed",
	Body:  "{entity_type} '{entity_name}' has been {action}",
}

// render substitutes placeholders from the given values.
func (t Template) render(values map[string]string) (title, body string) {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	rep := strings.NewReplacer(pairs...)
	return rep.Replace(t.Title), rep.Replace(t.Body)
}

// formatChanges renders a change summary as a deterministic suffix,
// sorted by field name.
func formatChanges(summary map[string]string) string {
	if len(summary) == 0 {
		return ""
	}
	fields := make([]string, 0, len(summary))
	for f := range summary {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+summary[f])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
