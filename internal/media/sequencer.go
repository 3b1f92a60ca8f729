package media

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/metrics"
)

// SaveFunc persists the record once every upload has finished. urls is nil when
// there was nothing to upload.
type SaveFunc func(ctx context.Context, urls []string) error

// Sequencer fans out uploads and then saves exactly once.
type Sequencer struct {
	store  ObjectStore
	folder string
	now    func() time.Time
	log    *logrus.Entry
}

func NewSequencer(store ObjectStore, folder string) *Sequencer {
	return &Sequencer{
		store:  store,
		folder: folder,
		now:    time.Now,
		log:    logger.For("media"),
	}
}

// Key returns the object key for an attachment uploaded at t.
func (s *Sequencer) Key(t time.Time, name string) string {
	return s.folder + "/" + strconv.FormatInt(t.UnixMilli(), 10) + "_" + name
}

// UploadAndSave uploads every source concurrently and calls save once with the
// URLs in source order. If any upload fails save is not called and a single
// error is returned. Uploads that already finished are left in storage.
func (s *Sequencer) UploadAndSave(ctx context.Context, sources []Source, save SaveFunc) error {
	if len(sources) == 0 {
		return s.save(ctx, save, nil)
	}

	urls := make([]string, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			url, err := s.upload(ctx, src)
			if err != nil {
				metrics.MediaUploads.WithLabelValues("error").Inc()
				return err
			}
			metrics.MediaUploads.WithLabelValues("ok").Inc()
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.SightingSaves.WithLabelValues("upload_error").Inc()
		s.log.WithError(err).WithField("files", len(sources)).Warn("media upload failed, record not saved")
		return err
	}
	return s.save(ctx, save, urls)
}

func (s *Sequencer) upload(ctx context.Context, src Source) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer rc.Close()

	key := s.Key(s.now(), src.Name())
	url, err := s.store.Upload(ctx, key, rc)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return url, nil
}

func (s *Sequencer) save(ctx context.Context, save SaveFunc, urls []string) error {
	if err := save(ctx, urls); err != nil {
		metrics.SightingSaves.WithLabelValues("save_error").Inc()
		return err
	}
	metrics.SightingSaves.WithLabelValues("ok").Inc()
	return nil
}
