package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aretw0/tasking/pkg/llm/humanllm"
	"github.com/aretw0/tasking/pkg/message"
	"github.com/aretw0/tasking/pkg/queue"
	"github.com/aretw0/tasking/pkg/taskcore"
	"github.com/aretw0/tasking/pkg/taskview"
	"github.com/aretw0/tasking/pkg/workflows/orchestrate"
	"github.com/aretw0/tasking/pkg/workflows/react"
	"github.com/aretw0/tasking/pkg/workflows/simple"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <input>",
	Short: "Submit a task and drive it to completion",
	Long:  `Loads the configured workflow family, stamps a root task from a template, and schedules it to a terminal state, printing the resulting tree as Markdown.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		title, _ := cmd.Flags().GetString("title")
		templateName, _ := cmd.Flags().GetString("template")
		interactive, _ := cmd.Flags().GetBool("interactive")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg, err := taskcore.LoadConfig(configPath)
		if err != nil {
			return err
		}

		opts := []taskcore.Option{}
		if interactive {
			operator := humanllm.New(os.Stdin, os.Stdout, int(os.Stdout.Fd()))
			for _, name := range llmNamesForWorkflow(cfg.Workflow) {
				opts = append(opts, taskcore.WithLLM(name, operator))
			}
		}
		if metricsAddr != "" {
			reg := prometheus.NewRegistry()
			opts = append(opts, taskcore.WithRegisterer(reg))
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				fmt.Fprintf(os.Stderr, "metrics listening on %s/metrics\n", metricsAddr)
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
				}
			}()
		}

		rt, err := taskcore.NewRuntime(configPath, opts...)
		if err != nil {
			return err
		}

		if title == "" {
			title = args[0]
		}
		root, err := rt.Submit(title, templateName, args[0])
		if err != nil {
			return err
		}

		outQueue := queue.New[message.Message](64)
		go drainQueue(outQueue)

		if err := rt.Run(cmd.Context(), root, outQueue); err != nil {
			outQueue.Close()
			return err
		}
		outQueue.Close()

		renderer, err := taskview.New()
		if err != nil {
			fmt.Println(taskview.TreeMarkdown(root))
			return nil
		}
		out, err := renderer.Tree(root)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

// llmNamesForWorkflow returns every LLM name the given workflow family looks
// up by, so interactive mode can register one human operator under each.
func llmNamesForWorkflow(workflow string) []string {
	switch workflow {
	case "simple":
		return []string{simple.LLMName}
	case "orchestrate":
		return []string{react.LLMName, orchestrate.LLMName}
	default:
		return []string{react.LLMName}
	}
}

func drainQueue(q *queue.Queue[message.Message]) {
	for {
		msg, ok, err := q.Get(context.Background())
		if err != nil || !ok {
			return
		}
		fmt.Printf("[%s] %s\n", msg.Role, msg.Text())
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("title", "", "Title for the root task (defaults to the input text)")
	runCmd.Flags().String("template", "", "Template name to stamp the root task from (defaults to the config's default_template)")
	runCmd.Flags().Bool("interactive", false, "Answer completion requests from the terminal instead of a wired LLM")
	runCmd.Flags().String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090) while the task runs")
}
