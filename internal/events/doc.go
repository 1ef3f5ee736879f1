// Package events decouples request handling from background processing.
//
// Services emit a TaskRequestEvent (for example TypeGenerationRequested once
// a generation record exists) through an EventEmitter; registered
// EventHandlers turn the event into work, such as a queued task. Neither
// side imports the other.
package events
