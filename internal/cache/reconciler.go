package cache

import (
	"time"

	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

// Reconciler decides whether a cached record is still trustworthy.
type Reconciler struct {
	Timeout time.Duration
}

// NewReconciler returns a Reconciler; a non-positive timeout means DefaultTimeout.
func NewReconciler(timeout time.Duration) Reconciler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Reconciler{Timeout: timeout}
}

// ShouldRecheck reports whether a URL last seen with status at lastCheckedAt must
// be fetched again at now. Deletable statuses are always rechecked.
func (r Reconciler) ShouldRecheck(status indexstatus.Status, lastCheckedAt, now time.Time) bool {
	if status.IsDeletable() {
		return true
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return lastCheckedAt.Before(now.Add(-timeout))
}

// ShouldRecheck applies the default Reconciler.
func ShouldRecheck(status indexstatus.Status, lastCheckedAt, now time.Time) bool {
	return NewReconciler(DefaultTimeout).ShouldRecheck(status, lastCheckedAt, now)
}
