// Package notifications implements the CRM notification routing and
// delivery pipeline: given a change to a business entity (activity, lead,
// deal, customer) it resolves who should be told, merges overlapping
// claims to the same person, suppresses the actor's own action, honors
// per-user preferences, builds a role-appropriate message, persists it
// durably, and pushes it to any currently-connected client.
//
// # Architecture
//
// The pipeline is composed of four collaborating parts:
//
//   - RulesEngine: recipient resolution (dedup + role aggregation +
//     actor suppression + preference muting)
//   - Builder: turns one resolved recipient plus event context into a
//     concrete notification payload
//   - Orchestrator: per-recipient fan-out of build+persist+push with
//     failure isolation
//   - Service: the read-state facade over durable storage (create, list,
//     unread count, mark read, mark all read, delete)
//
// External collaborators are expressed as small interfaces
// (RecipientProvider, PreferenceStore, Storage, Transport) so the core
// stays independent of the relational schema and the wire transport.
//
// # Basic Usage
//
//	storage := notifications.NewMemoryStorage()
//	svc := notifications.NewService(storage, transport)
//	engine := notifications.NewRulesEngine(provider, prefs)
//	orch := notifications.NewOrchestrator(engine, notifications.NewBuilder(), svc, transport)
//
//	nctx, _ := notifications.NewContext(notifications.EventStatusChanged, "deal", 9, "alice@crm.local")
//	report, err := orch.NotifyEntityChange(ctx, "deal", 9, nctx, snapshot)
//
// Persistence is the commit point: real-time push is best effort and a
// missed push is recoverable through List and UnreadCount.
package notifications
