package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
	"github.com/spf13/cobra"

	"github.com/goravsingal/hubble/pkg/fdg"
)

func graphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <routine.fdg>",
		Short: "Print a human-readable summary of a routine's chaining graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := fdg.LoadFile(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "dot":
				out, err := renderDOT(doc)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
			case "text", "":
				fmt.Fprint(cmd.OutOrStdout(), renderText(doc))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// blockOrder returns block ids in BFS order from main; unreachable
// blocks are appended in sorted order at the end.
func blockOrder(doc *fdg.Document) []string {
	visited := map[string]bool{}
	var order []string

	queue := []string{fdg.EntryBlockID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		if _, ok := doc.Blocks[cur]; !ok {
			continue
		}
		visited[cur] = true
		order = append(order, cur)
		for _, edge := range doc.Blocks[cur].Chains() {
			if !visited[edge.Target] {
				queue = append(queue, edge.Target)
			}
		}
	}

	var rest []string
	for id := range doc.Blocks {
		if !visited[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// renderText produces the human-readable text summary.
func renderText(doc *fdg.Document) string {
	var sb strings.Builder

	order := blockOrder(doc)
	edgeCount := 0
	for _, block := range doc.Blocks {
		edgeCount += len(block.Chains())
	}
	fmt.Fprintf(&sb, "Routine: %s  (%d blocks, %d chains)\n", doc.Name, len(doc.Blocks), edgeCount)

	maxIDLen := 5 // minimum "block"
	for id := range doc.Blocks {
		if len(id) > maxIDLen {
			maxIDLen = len(id)
		}
	}

	fmt.Fprintf(&sb, "\nBlocks:\n")
	for _, id := range order {
		block := doc.Blocks[id]
		extra := ""
		if block.Return != "" {
			extra = "  return=" + block.Return
		}
		fmt.Fprintf(&sb, "  %-*s  %s%s\n", maxIDLen, id, block.Module, extra)
	}

	fmt.Fprintf(&sb, "\nChains:\n")
	for _, id := range order {
		for _, edge := range doc.Blocks[id].Chains() {
			fmt.Fprintf(&sb, "  %-*s  →  %s  [%s]\n", maxIDLen, id, edge.Target, edge.Keyword)
		}
	}

	return sb.String()
}

// renderDOT produces a DOT digraph of the routine's chaining structure.
func renderDOT(doc *fdg.Document) (string, error) {
	name := strconv.Quote(doc.Name)
	g := gographviz.NewGraph()
	if err := g.SetName(name); err != nil {
		return "", fmt.Errorf("build graph: %w", err)
	}
	if err := g.SetDir(true); err != nil {
		return "", fmt.Errorf("build graph: %w", err)
	}

	order := blockOrder(doc)
	for _, id := range order {
		block := doc.Blocks[id]
		attrs := map[string]string{
			"label": strconv.Quote(id + "\\n" + block.Module),
		}
		if err := g.AddNode(name, strconv.Quote(id), attrs); err != nil {
			return "", fmt.Errorf("add node %q: %w", id, err)
		}
	}
	for _, id := range order {
		for _, edge := range doc.Blocks[id].Chains() {
			attrs := map[string]string{"label": strconv.Quote(edge.Keyword)}
			if err := g.AddEdge(strconv.Quote(id), strconv.Quote(edge.Target), true, attrs); err != nil {
				return "", fmt.Errorf("add edge %q->%q: %w", id, edge.Target, err)
			}
		}
	}

	return g.String(), nil
}
