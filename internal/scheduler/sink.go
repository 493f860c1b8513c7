package scheduler

import (
	"context"
	"errors"

	"github.com/t77yq/energy-dashboard/internal/model"
)

type multiSink []DigestSink

// MultiSink delivers every digest to each sink in order. Nil sinks are ignored.
func MultiSink(sinks ...DigestSink) DigestSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) PublishDigest(ctx context.Context, ch model.NotificationChannel, digest model.Digest) error {
	var errs []error
	for _, s := range m {
		if err := s.PublishDigest(ctx, ch, digest); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
