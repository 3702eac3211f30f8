package plants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoPlants indicates a source that produced no plants.
var ErrNoPlants = errors.New("no plants available")

// Source loads the full plant list.
type Source interface {
	Load(ctx context.Context) ([]Plant, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Plant, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) ([]Plant, error) { return f(ctx) }

// Registry serves plants loaded from a Source on first access. The list is
// written once and read without locking afterwards. A failed load is kept and
// returned to every caller.
type Registry struct {
	src         Source
	loadTimeout time.Duration
	logger      *logrus.Entry

	once   sync.Once
	plants []Plant
	err    error
}

// NewRegistry returns a registry backed by src. loadTimeout bounds the single
// load; zero means no bound.
func NewRegistry(src Source, loadTimeout time.Duration, logger *logrus.Entry) *Registry {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{src: src, loadTimeout: loadTimeout, logger: logger.WithField("component", "plants")}
}

// NewStaticRegistry returns a registry over a fixed list.
func NewStaticRegistry(list []Plant) *Registry {
	return NewRegistry(SourceFunc(func(context.Context) ([]Plant, error) { return list, nil }), 0, nil)
}

func (r *Registry) load(ctx context.Context) {
	r.once.Do(func() {
		// Detached from the first caller: the result is shared by all of them.
		ctx = context.WithoutCancel(ctx)
		if r.loadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.loadTimeout)
			defer cancel()
		}
		started := time.Now()
		list, err := r.src.Load(ctx)
		if err == nil && len(list) == 0 {
			err = ErrNoPlants
		}
		if err != nil {
			r.err = fmt.Errorf("load plants: %w", err)
			r.logger.WithError(err).Error("plant load failed")
			return
		}
		r.plants = list
		r.logger.WithFields(logrus.Fields{"count": len(list), "duration": time.Since(started)}).Info("plants loaded")
	})
}

// List returns every plant in source order. The slice must not be modified.
func (r *Registry) List(ctx context.Context) ([]Plant, error) {
	r.load(ctx)
	return r.plants, r.err
}

// Get finds a plant by name, ignoring case and surrounding space.
func (r *Registry) Get(ctx context.Context, name string) (Plant, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Plant{}, false, nil
	}
	list, err := r.List(ctx)
	if err != nil {
		return Plant{}, false, err
	}
	for _, p := range list {
		if strings.EqualFold(p.Name, name) {
			return p, true, nil
		}
	}
	return Plant{}, false, nil
}
