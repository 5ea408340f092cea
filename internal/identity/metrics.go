package identity

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedResolver counts resolutions per outcome.
type InstrumentedResolver struct {
	inner    Resolver
	outcomes *prometheus.CounterVec
}

// NewInstrumentedResolver registers teamup_identity_resolutions_total on reg.
// A collector already registered by an earlier call is reused.
func NewInstrumentedResolver(inner Resolver, reg prometheus.Registerer) (*InstrumentedResolver, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teamup",
		Subsystem: "identity",
		Name:      "resolutions_total",
		Help:      "Identity lookups partitioned by outcome.",
	}, []string{"outcome"})
	if reg != nil {
		if err := reg.Register(counter); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			counter = existing
		}
	}
	return &InstrumentedResolver{inner: inner, outcomes: counter}, nil
}

func (r *InstrumentedResolver) ResolveUser(ctx context.Context, userID string) Resolution {
	res := r.inner.ResolveUser(ctx, userID)
	r.outcomes.WithLabelValues(res.Outcome.String()).Inc()
	return res
}
