// Package simulation turns a configuration into trials and runs them to
// termination, collecting per-step trajectories and end-of-trial
// measurements for reporting.
//
// Every trial gets a fresh tumor, fresh models and its own random stream
// derived from the master seed and the trial index, so trials share no
// mutable state and may run in parallel. Results are identical for a given
// seed regardless of parallelism.
//
// Usage:
//
//	cfg, _ := config.Load("scenario.yaml")
//	r, err := simulation.NewRunner(cfg, simulation.WithParallelism(4))
//	if err != nil { ... }
//	result, err := r.Run(ctx)
//	simulation.AssertTerminatedBy(t, result, tumor.ReasonMaxSteps)
package simulation
