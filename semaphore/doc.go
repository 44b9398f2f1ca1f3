// Package semaphore provides a counting semaphore guarded by a mutex and
// condition variable.
//
// A Semaphore holds a number of permits. Wait takes one, blocking while none
// are available; Notify returns one and wakes a blocked waiter. WaitContext
// bounds the wait with a context and TryWait never blocks.
//
// Waiters are not served in arrival order: a goroutine that calls Wait or
// TryWait right after a Notify may take the permit ahead of one that has been
// blocked longer.
package semaphore
