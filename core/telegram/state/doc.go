// Package state keeps per-user conversation state between updates.
// Stores expire idle entries; KeyedMutex serializes work for one user.
package state
