package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/hiepcp/full-crm-sub005/pkg/logger"
)

// RuleFilter inspects one raw assignment and reports whether it should be
// kept. Filters run before grouping, so dropping an assignment removes one
// relationship path, not necessarily the whole recipient.
type RuleFilter func(raw RawAssignment, nctx Context) bool

// SkipSourceType returns a filter dropping assignments sourced from the
// given entity type (e.g. keep customer contacts out of internal notes).
func SkipSourceType(entityType string) RuleFilter {
	return func(raw RawAssignment, _ Context) bool {
		return raw.SourceEntityType != entityType
	}
}

// RulesEngine resolves, deduplicates and filters notification recipients.
type RulesEngine struct {
	provider RecipientProvider
	prefs    PreferenceStore
	filters  []RuleFilter
	logger   *slog.Logger
}

// RulesEngineOption configures a RulesEngine.
type RulesEngineOption func(*RulesEngine)

// WithRulesLogger sets the logger for the RulesEngine.
func WithRulesLogger(log *slog.Logger) RulesEngineOption {
	return func(e *RulesEngine) {
		if log != nil {
			e.logger = log
		}
	}
}

// WithRuleFilters adds business-rule filters applied to raw assignments
// before grouping. Default is no filters.
func WithRuleFilters(filters ...RuleFilter) RulesEngineOption {
	return func(e *RulesEngine) {
		e.filters = append(e.filters, filters...)
	}
}

// NewRulesEngine creates a recipient resolution engine. The preference
// store is optional; without one, no preference muting is applied.
func NewRulesEngine(provider RecipientProvider, prefs PreferenceStore, opts ...RulesEngineOption) (*RulesEngine, error) {
	if provider == nil {
		return nil, ErrProviderNil
	}

	e := &RulesEngine{
		provider: provider,
		prefs:    prefs,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// DetermineRecipients resolves the finalized recipient list for one entity
// change. The returned slice is sorted by (primary role rank, user key) so
// output is deterministic. If the provider or preference store fails, the
// whole call fails: no partial recipient list is ever returned.
func (e *RulesEngine) DetermineRecipients(ctx context.Context, entityType string, entityID int64, nctx Context) ([]ResolvedRecipient, error) {
	raw, err := e.provider.GetAssignees(ctx, entityType, entityID)
	if err != nil {
		return nil, errors.Join(ErrResolution, err)
	}

	e.logger.LogAttrs(ctx, slog.LevelDebug, "fetched raw assignments",
		logger.EntityType(entityType),
		logger.EntityID(entityID),
		slog.Int("assignment_count", len(raw)),
	)

	groups := e.groupAssignments(raw, nctx)

	// Preference lookups are cached per resolution call; no process-wide
	// cache is allowed to entangle with resolution correctness.
	prefCache := make(map[string]Preference, len(groups))

	recipients := make([]ResolvedRecipient, 0, len(groups))
	for key, rec := range groups {
		if nctx.SuppressActor && key == nctx.ActorKey {
			continue
		}

		if e.prefs != nil {
			pref, ok := prefCache[key]
			if !ok {
				pref, err = e.prefs.Get(ctx, key)
				if err != nil {
					return nil, errors.Join(ErrResolution, err)
				}
				prefCache[key] = pref
			}
			if pref.Muted(nctx.EventType) {
				continue
			}
		}

		recipients = append(recipients, rec)
	}

	sort.Slice(recipients, func(i, j int) bool {
		pi, pj := recipients[i].PrimaryRole().Priority(), recipients[j].PrimaryRole().Priority()
		if pi != pj {
			return pi < pj
		}
		return recipients[i].UserKey < recipients[j].UserKey
	})

	e.logger.LogAttrs(ctx, slog.LevelDebug, "resolved recipients",
		logger.EntityType(entityType),
		logger.EntityID(entityID),
		slog.Int("recipient_count", len(recipients)),
	)

	return recipients, nil
}

// groupAssignments applies rule filters, then merges raw assignments by
// normalized user key, unioning roles and retaining every source tuple in
// input order.
func (e *RulesEngine) groupAssignments(raw []RawAssignment, nctx Context) map[string]ResolvedRecipient {
	groups := make(map[string]ResolvedRecipient)

	for _, a := range raw {
		if !e.keep(a, nctx) {
			continue
		}

		key := NormalizeKey(a.UserKey)
		if key == "" || !a.Role.Valid() {
			continue
		}

		rec, ok := groups[key]
		if !ok {
			rec = ResolvedRecipient{
				UserKey: key,
				Roles:   make(map[Role]struct{}),
			}
		}
		rec.Roles[a.Role] = struct{}{}
		rec.Sources = append(rec.Sources, AssignmentSource{
			EntityType: a.SourceEntityType,
			EntityID:   a.SourceEntityID,
			Role:       a.Role,
		})
		groups[key] = rec
	}

	return groups
}

func (e *RulesEngine) keep(raw RawAssignment, nctx Context) bool {
	for _, f := range e.filters {
		if !f(raw, nctx) {
			return false
		}
	}
	return true
}
