// Package jobs turns user actions into command values and runs them one at a
// time.
//
// A front end (the CLI, or any UI adapter) builds a Command and either runs it
// synchronously with Dispatcher.Run or hands it to Dispatcher.Submit, which
// executes it on a background goroutine and reports the outcome as a Message
// on Dispatcher.Messages. Only one job runs at a time; a second submission
// while one is in flight fails with ErrBusy. Organize and undo additionally
// hold the operation log lock so separate processes cannot interleave.
package jobs
