package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/cardcalc/internal/manager"
	"github.com/duynguyendang/cardcalc/pkg/card"
	"github.com/duynguyendang/cardcalc/pkg/mcp"
	"github.com/duynguyendang/cardcalc/pkg/server"
	"github.com/duynguyendang/cardcalc/pkg/solver"
)

func main() {
	_ = godotenv.Load()

	mgr := manager.NewProjectManager(solver.DefaultConfig())

	root := &cobra.Command{
		Use:   "cardcalc",
		Short: "Card calculation engine: encodes card trees as logic facts and derives fields via an external solver",
	}

	var scopeCard string
	generateCmd := &cobra.Command{
		Use:   "generate <project>",
		Short: "Rebuild the fact corpus for a project (optionally scoped to one card's subtree)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			if err := pc.Engine.Generate(cmd.Context(), scopeCard); err != nil {
				return err
			}
			fmt.Printf("Corpus generated in %s\n", pc.Engine.CalcDir())
			return nil
		},
	}
	generateCmd.Flags().StringVar(&scopeCard, "card", "", "card key to scope generation to")

	runCmd := &cobra.Command{
		Use:   "run <project> <cardKey>",
		Short: "Compute the derived fields for one card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			if _, err := mgr.LookupCard(pc, args[1]); err != nil {
				return err
			}
			facts, err := pc.Engine.Run(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(facts, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	var parentKey, cardType, summary string
	newCmd := &cobra.Command{
		Use:   "new <project>",
		Short: "Create a card and extend the corpus incrementally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			key := card.NewKey(cardType)
			c, err := pc.Store.CreateCard(parentKey, key, map[string]any{
				card.FieldCardType:      cardType,
				card.FieldSummary:       summary,
				card.FieldWorkflowState: "created",
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created card %s at %s\n", c.Key, c.Path)
			return pc.Engine.HandleNewCards(cmd.Context(), []string{c.Key})
		},
	}
	newCmd.Flags().StringVar(&parentKey, "parent", "", "parent card key (empty for a root card)")
	newCmd.Flags().StringVar(&cardType, "type", "task", "card type designator")
	newCmd.Flags().StringVar(&summary, "summary", "", "card summary")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			fmt.Printf("Starting REST API server on :%s\n", port)
			return server.NewServer(mgr).Run(":" + port)
		},
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp <project>",
		Short: "Expose the engine over MCP on stdio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.Run(cmd.Context(), mgr, args[0])
		},
	}

	root.AddCommand(generateCmd, runCmd, newCmd, serveCmd, mcpCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
