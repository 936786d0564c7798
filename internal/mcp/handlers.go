package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/tumor-lattice/internal/config"
	"github.com/nvandessel/tumor-lattice/internal/simulation"
)

// registerTools registers the simulation tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "tumor_run",
		Description: "Run a stochastic lattice tumor simulation and return per-trial final states",
	}, s.handleTumorRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "tumor_validate_config",
		Description: "Check a simulation configuration and report the first offending property",
	}, s.handleTumorValidate)
}

// buildConfig decodes YAML over the defaults, then applies flat properties.
func buildConfig(yamlText string, props map[string]string) (*config.SimConfig, error) {
	c, err := config.Parse([]byte(yamlText))
	if err != nil {
		return nil, err
	}
	if err := c.Set(props); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) finish(tool string, start time.Time, params map[string]string, err error) {
	entry := AuditEntry{
		Timestamp:  start.UTC(),
		Tool:       tool,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
		Params:     params,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
		s.logger.Warn("tool call failed", "tool", tool, "error", err)
	} else {
		s.logger.Debug("tool call", "tool", tool, "duration_ms", entry.DurationMs)
	}
	s.audit.Log(entry)
}

func (s *Server) handleTumorRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.finish("tumor_run", start, auditParams(args.Config, args.Properties, map[string]int{"trials": args.Trials}), retErr)
	}()

	c, err := buildConfig(args.Config, args.Properties)
	if err != nil {
		return nil, RunOutput{}, err
	}
	if args.Trials < 0 {
		return nil, RunOutput{}, fmt.Errorf("trials %d must not be negative", args.Trials)
	}
	if args.Seed != 0 {
		c.Random.Seed = args.Seed
	}
	if args.Trials != 0 {
		c.Tumor.Trials = args.Trials
	}
	if err := c.Validate(); err != nil {
		return nil, RunOutput{}, err
	}
	if c.Tumor.Trials > s.limits.MaxTrials {
		return nil, RunOutput{}, fmt.Errorf("trials %d exceeds server limit %d", c.Tumor.Trials, s.limits.MaxTrials)
	}
	if c.Tumor.MaxSteps > s.limits.MaxSteps {
		return nil, RunOutput{}, fmt.Errorf("max_steps %d exceeds server limit %d", c.Tumor.MaxSteps, s.limits.MaxSteps)
	}
	if err := s.limiters.Check("tumor_run", float64(c.Tumor.Trials)); err != nil {
		return nil, RunOutput{}, err
	}

	runner, err := simulation.NewRunner(c, simulation.WithLogger(s.logger))
	if err != nil {
		return nil, RunOutput{}, err
	}
	result, err := runner.Run(ctx)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("running simulation: %w", err)
	}

	out := RunOutput{
		Seed:      result.Seed,
		Summary:   result.Summarize(),
		Trials:    make([]TrialSummary, 0, len(result.Trials)),
		ElapsedMs: result.Elapsed.Milliseconds(),
	}
	for _, o := range result.Trials {
		ts := TrialSummary{
			Trial:      o.Trial,
			Reason:     string(o.Reason),
			Steps:      o.Final.Step,
			Cells:      o.Final.Cells,
			Components: o.Final.Components,
			Senescent:  o.Final.Senescent,
			Mutations:  len(o.Mutations),
			Radius:     o.Moment.RadiusGyration,
		}
		if args.Trajectory {
			ts.Trajectory = make([]int64, len(o.Trajectory))
			for i, snap := range o.Trajectory {
				ts.Trajectory[i] = snap.Cells
			}
		}
		out.Trials = append(out.Trials, ts)
	}
	return nil, out, nil
}

func (s *Server) handleTumorValidate(ctx context.Context, req *sdk.CallToolRequest, args ValidateInput) (_ *sdk.CallToolResult, _ ValidateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.finish("tumor_validate_config", start, auditParams(args.Config, args.Properties, nil), retErr)
	}()

	if err := s.limiters.Check("tumor_validate_config", 1); err != nil {
		return nil, ValidateOutput{}, err
	}

	c, err := buildConfig(args.Config, args.Properties)
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		out := ValidateOutput{Error: err.Error()}
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			out.Property = verr.Property
			out.Value = fmt.Sprint(verr.Value)
		}
		return nil, out, nil
	}

	data, err := c.Marshal()
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	return nil, ValidateOutput{Valid: true, Resolved: string(data)}, nil
}
