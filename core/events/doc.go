// Package events defines the progress events emitted on the event bus while
// groups are scored.
//
// Available event types:
//   - RunStarted: a case begins, with the number of groups to score
//   - GroupDone: one group reached a terminal status
//   - RunFinished: a case completed or was cancelled
package events
