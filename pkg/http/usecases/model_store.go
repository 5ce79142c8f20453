package usecases

import (
	"os"
	"sync"
	"time"

	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"go.uber.org/zap"
)

// ModelStore lazily loads the persisted estimator and reloads it when the file changes.
type ModelStore struct {
	path string
	log  *zap.Logger

	mu      sync.RWMutex
	est     *estimator.Estimator
	modTime time.Time
}

func NewModelStore(path string, log *zap.Logger) *ModelStore {
	return &ModelStore{
		path: path,
		log:  log,
	}
}

func (s *ModelStore) Path() string {
	return s.path
}

// Get returns the current estimator. A missing file, or a corrupt file with nothing cached,
// is an ErrModelUnavailable error. A corrupt file with a cached estimator keeps the cached one.
func (s *ModelStore) Get() (*estimator.Estimator, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, util.WrapErrorf(estimator.ErrModelLoad, util.ErrModelUnavailable,
			"model file %s is not available, run training first", s.path)
	}

	s.mu.RLock()
	est, modTime := s.est, s.modTime
	s.mu.RUnlock()
	if est != nil && modTime.Equal(info.ModTime()) {
		return est, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.est != nil && s.modTime.Equal(info.ModTime()) {
		return s.est, nil
	}

	est, err = estimator.LoadFile(s.path)
	if err != nil {
		if s.est != nil {
			s.log.Warn("failed to reload travel time model, keeping the cached one",
				zap.String("path", s.path), zap.Error(err))
			s.modTime = info.ModTime()
			return s.est, nil
		}
		s.log.Error("failed to load travel time model", zap.String("path", s.path), zap.Error(err))
		return nil, err
	}
	s.est = est
	s.modTime = info.ModTime()
	s.log.Info("travel time model loaded", zap.String("path", s.path), zap.String("kind", est.Kind()))
	return est, nil
}

// Put replaces the cached estimator after it has been written to disk.
func (s *ModelStore) Put(est *estimator.Estimator) {
	info, err := os.Stat(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.est = est
	if err == nil {
		s.modTime = info.ModTime()
	} else {
		s.modTime = time.Time{}
	}
}
