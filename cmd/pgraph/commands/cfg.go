package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/pgraph/pkg/cfg"
	"github.com/l3aro/pgraph/pkg/frontend"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg <file> <function>",
	Short: "Show the control flow graph of a function",
	Long: `Builds the control flow graph of one function in a C++ file, with scope
markers and the implicit destructor calls of automatic objects and temporaries.
The function name may be qualified (Widget::draw) or not (draw).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]
		functionName := args[1]

		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("path is a directory, expected a file: %s", filePath)
		}

		cfgInfo, err := cfg.ExtractCFG(cmd.Context(), filePath, functionName)
		if err != nil {
			if errors.Is(err, cfg.ErrFunctionNotFound) {
				if suggestions := findSimilarFunctions(cmd, filePath, functionName); len(suggestions) > 0 {
					return fmt.Errorf("function %q not found in %s\nDid you mean: %s?",
						functionName, filePath, strings.Join(suggestions, ", "))
				}
				return fmt.Errorf("function %q not found in %s", functionName, filePath)
			}
			return fmt.Errorf("extracting CFG: %w", err)
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(cfgInfo, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		printCFGInfo(cfgInfo)
		return nil
	},
}

// findSimilarFunctions returns the defined functions whose name contains
// funcName, ignoring case.
func findSimilarFunctions(cmd *cobra.Command, filePath, funcName string) []string {
	p := frontend.NewParser()
	defer p.Close()
	unit, err := p.ParseFile(cmd.Context(), filePath)
	if err != nil {
		return nil
	}
	needle := strings.ToLower(funcName)
	if i := strings.LastIndex(needle, "::"); i >= 0 {
		needle = needle[i+2:]
	}
	var out []string
	for _, name := range cfg.FunctionNames(unit) {
		if strings.Contains(strings.ToLower(name), needle) {
			out = append(out, name)
		}
	}
	return out
}

// printCFGInfo prints CFG information in human-readable format.
func printCFGInfo(info *cfg.CFGInfo) {
	fmt.Printf("=== CFG for function: %s ===\n", info.FunctionName)
	fmt.Printf("Cyclomatic Complexity: %d\n", info.CyclomaticComplexity)
	fmt.Printf("Entry Block: %s\n", info.EntryBlockID)
	fmt.Printf("Exit Blocks: %v\n", info.ExitBlockIDs)
	fmt.Printf("\nBlocks (%d):\n", len(info.Blocks))
	for _, block := range info.Blocks {
		fmt.Printf("  %s (%s, bytes %d-%d)\n", block.ID, block.Type, block.Start, block.End)
		for _, el := range block.Elements {
			if el.Kind == cfg.ElementStatement {
				fmt.Printf("    %s\n", el.Text)
				continue
			}
			fmt.Printf("    [%s] %s\n", el.Kind, el.Text)
		}
	}

	fmt.Printf("\nEdges (%d):\n", len(info.Edges))
	for _, edge := range info.Edges {
		fmt.Printf("  %s --%s--> %s\n", edge.SourceID, edge.EdgeType, edge.TargetID)
	}

	if dtors := info.AutomaticObjectDtors(); len(dtors) > 0 {
		fmt.Printf("\nDestruction points (%d):\n", len(dtors))
		for _, el := range dtors {
			fmt.Printf("  %s\n", el.Text)
		}
	}
}

func init() {
	cfgCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(cfgCmd)
}
