package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"greenroom/internal/auth"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and run the tool catalog",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered tools",
	RunE:  runToolsList,
}

var toolsRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a tool from the command line",
	Long: `Run a tool as the local user. Synchronous tools print their result;
async tools print the dispatched job id for polling with jobs inspect.`,
	Args: cobra.ExactArgs(1),
	RunE: runToolsRun,
}

func runToolsList(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println(headerStyle.Render("Registered tools"))
	for _, tool := range rt.registry.List() {
		mode := "sync"
		if tool.Async {
			mode = fmt.Sprintf("async/%s", tool.Pool)
		}
		fmt.Printf("  %-22s %-14s v%-8s %s\n",
			tool.Name,
			mutedStyle.Render(mode),
			tool.Version,
			tool.Description,
		)
	}
	return nil
}

func runToolsRun(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	user, err := auth.EnsureLocalUser(rt.repos)
	if err != nil {
		return err
	}

	rawInput, _ := cmd.Flags().GetString("input")
	input := json.RawMessage(rawInput)

	name := args[0]
	tool, err := rt.registry.Lookup(name)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if tool.Async {
		handle, err := rt.dispatcher.Dispatch(ctx, name, user.ID, input)
		if err != nil {
			return err
		}
		fmt.Printf("%s job %s (%s)\n", successStyle.Render("Dispatched"), handle.JobID, handle.Status)
		fmt.Println(mutedStyle.Render("Poll with: greenroom jobs inspect " + handle.JobID))
		return nil
	}

	result, err := rt.executor.Execute(ctx, name, user.ID, input)
	if err != nil {
		return err
	}

	if !result.Success {
		fmt.Printf("%s %s\n", errorStyle.Render("Failed:"), result.Error)
		return nil
	}

	pretty, err := json.MarshalIndent(json.RawMessage(result.Data), "", "  ")
	if err != nil {
		fmt.Println(string(result.Data))
		return nil
	}
	fmt.Println(string(pretty))
	return nil
}
