package pipeline

import (
	"errors"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
)

// registry is the implementation of the Registry interface.
type registry struct {
	workers int
	pool    worker.DynamicWorkerPool

	mu        sync.RWMutex
	pipelines map[string]Pipeline
	destroyed bool
}

// Registry holds pipelines by key and builds them in parallel on a bounded worker pool.
type Registry interface {
	// Add registers an unbuilt or built pipeline.
	//
	// Parameters:
	//   - p: the pipeline
	//
	// Returns:
	//   - error: ErrInvalidConfig if the key is empty or already registered, ErrRecording after Destroy
	Add(p Pipeline) error

	// Get returns the pipeline registered under key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - Pipeline: the pipeline, or nil
	//   - bool: true if found
	Get(key string) (Pipeline, bool)

	// Keys returns the registered keys in sorted order.
	//
	// Returns:
	//   - []string: the keys
	Keys() []string

	// BuildAll builds every registered pipeline that is not yet built, in parallel. Each
	// failure is reported; pipelines that succeed stay built regardless.
	//
	// Parameters:
	//   - device: the device to compile on
	//   - format: the render target format
	//
	// Returns:
	//   - error: the joined build errors in key order, ErrRecording after Destroy, or nil
	BuildAll(device gpu.Device, format gputypes.TextureFormat) error

	// Destroy releases every registered pipeline and stops the worker pool. Calling it again
	// does nothing.
	Destroy()
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
//
// Parameters:
//   - opts: functional options
//
// Returns:
//   - Registry: the registry
func NewRegistry(opts ...RegistryBuilderOption) Registry {
	r := &registry{
		workers:   runtime.NumCPU(),
		pipelines: make(map[string]Pipeline),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)
	return r
}

func (r *registry) Add(p Pipeline) error {
	if p == nil || p.PipelineKey() == "" {
		return gpu.Errorf(gpu.ErrInvalidConfig, "Registry.Add", "pipeline has no key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return gpu.Errorf(gpu.ErrRecording, "Registry.Add", "registry destroyed")
	}
	if _, ok := r.pipelines[p.PipelineKey()]; ok {
		return gpu.Errorf(gpu.ErrInvalidConfig, "Registry.Add", "pipeline %q already registered", p.PipelineKey())
	}
	r.pipelines[p.PipelineKey()] = p
	return nil
}

func (r *registry) Get(key string) (Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[key]
	return p, ok
}

func (r *registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.pipelines))
	for k := range r.pipelines {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *registry) BuildAll(device gpu.Device, format gputypes.TextureFormat) error {
	r.mu.RLock()
	destroyed := r.destroyed
	r.mu.RUnlock()
	if destroyed {
		return gpu.Errorf(gpu.ErrRecording, "Registry.BuildAll", "registry destroyed")
	}
	keys := r.Keys()
	errs := make([]error, len(keys))

	start := time.Now()
	var wg sync.WaitGroup
	for i, key := range keys {
		p, _ := r.Get(key)
		if p.Built() {
			continue
		}
		wg.Add(1)
		r.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				errs[i] = p.Build(device, format)
				return nil, errs[i]
			},
		})
	}
	wg.Wait()

	err := errors.Join(errs...)
	common.Logger().Info("pipelines built", "count", len(keys), "elapsed", time.Since(start), "failed", err != nil)
	return err
}

func (r *registry) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	r.destroyed = true
	for _, p := range r.pipelines {
		p.Destroy()
	}
	clear(r.pipelines)
	r.pool.Stop()
}
