package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/orchestrate/agents"
	"github.com/lexcodex/orchestrate/framework"
)

func newRunCmd() *cobra.Command {
	var agentType string
	var stream bool
	var asJSON bool
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a task through an agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ensureWorkspace())
			if err != nil {
				return err
			}
			defer rt.Close()
			if agentType == "" {
				agentType = rt.defaultAgent()
			}
			agent, err := rt.registry.Create(agentType, agents.Options{MaxIterations: maxIterations})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var handler framework.StreamHandler
			if stream {
				handler = func(event framework.StreamEvent) {
					switch event.Type {
					case framework.StreamReasoningStep:
						fmt.Fprintln(out, renderStep(event.Step))
					case framework.StreamPlanStep:
						fmt.Fprintln(out, renderPlanStep(event.PlanStep))
					}
				}
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			task := strings.Join(args, " ")
			result, runErr := agent.Run(ctx, task, handler)
			if result != nil {
				if _, err := rt.runs.Save(context.Background(), agentType, result); err != nil {
					rt.logger.Warn("saving run failed", "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out, renderResult(result))
			return nil
		},
	}
	cmd.Flags().StringVar(&agentType, "agent", "", "Agent type (react|planner|composite); defaults to agent.default_type")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print reasoning and plan steps as they complete")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Override the iteration cap")
	return cmd
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [task]",
		Short: "Decompose a task into steps without executing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(ensureWorkspace())
			if err != nil {
				return err
			}
			defer rt.Close()
			agent, err := rt.registry.Create(agents.TypePlanner, agents.Options{})
			if err != nil {
				return err
			}
			p, ok := agent.(interface {
				PlanDetailed(ctx context.Context, task string) (*framework.PlanResult, error)
			})
			if !ok {
				return fmt.Errorf("agent %s cannot plan", agents.TypePlanner)
			}
			plan, err := p.PlanDetailed(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPlan(plan))
			return nil
		},
	}
}
