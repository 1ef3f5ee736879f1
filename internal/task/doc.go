// Package task manages background job queuing, processing, and lifecycle.
// It runs generation records through their provider pipeline outside the
// HTTP request, persists every task so work interrupted by a restart is
// recovered, and checkpoints generation progress on the record itself.
package task
