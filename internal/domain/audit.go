package domain

import "time"

// Audit carries persistence metadata. The storage adapter fills it on save;
// use cases never compute it.
type Audit struct {
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
}

// Stamp records a write performed by actor at now. The creation half is only
// set the first time.
func (a *Audit) Stamp(actor string, now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
		a.CreatedBy = actor
	}
	a.UpdatedAt = now
	a.UpdatedBy = actor
}
