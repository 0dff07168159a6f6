// Package attendance contains the chat attendance domain model.
//
// The package defines:
//
//   - Entities: Member (id + display name) and the per-date completion set (IDSet)
//   - The Store contract: roster and completion-set persistence, scoped by chat id
//   - The statistics aggregator: BuildReport over a roster and a date range
//
// # Architecture
//
//  1. Only golang.org/x/text is imported, for collation
//  2. Dependency inversion: Store is implemented in infrastructure/persistence
//  3. Every mutation is idempotent, so redelivered platform events are harmless
//
// # Usage
//
//	dates := calendar.LastNDays(7)
//	roster, _ := store.ListMembers(ctx, chatID)
//	sets, _ := store.CompletedIDsByDate(ctx, chatID, dates)
//	report := attendance.BuildReport(roster, dates, sets, attendance.NewCollator("zh-Hant"))
//
// Chats never share keys. A completion set may briefly contain an id that the roster
// does not know yet; reports only ever list roster members.
package attendance
