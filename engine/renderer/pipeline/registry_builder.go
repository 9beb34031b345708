package pipeline

// RegistryBuilderOption is a functional option used to configure a Registry.
type RegistryBuilderOption func(*registry)

// WithWorkers sets the maximum number of pipelines compiled concurrently.
//
// Parameters:
//   - n: the worker count, defaults to runtime.NumCPU()
//
// Returns:
//   - RegistryBuilderOption: a function that sets the worker count
func WithWorkers(n int) RegistryBuilderOption {
	return func(r *registry) {
		r.workers = n
	}
}
