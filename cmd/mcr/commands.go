package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcr/internal/provider"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage knowledge-base sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := mgr.Create(cmd.Context(), "")
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List session ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			for _, id := range mgr.List() {
				fmt.Println(id)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("session %s (%d clauses, modified %s)\n%s\n",
				info.ID, info.ClauseCount, info.ModifiedAt.Format("2006-01-02 15:04:05"), info.KBText)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return mgr.Delete(cmd.Context(), args[0])
		},
	})

	return cmd
}

func newAssertCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "assert <text>",
		Short: "Assert a natural language statement into a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := mgr.Assert(cmd.Context(), sessionID, args[0])
			if err != nil {
				return err
			}
			for _, clause := range result.AddedClauses {
				fmt.Println(clause)
			}
			fmt.Printf("%d clause(s) in knowledge base\n", result.ClauseCount)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var sessionID, style string
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a natural language question against a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := mgr.Query(cmd.Context(), sessionID, args[0], style)
			if err != nil {
				return err
			}
			fmt.Println(resp.Answer)
			if verbose {
				fmt.Printf("(query: %v)\n", resp.DebugInfo["query"])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id")
	cmd.Flags().StringVar(&style, "style", "", "answer style hint")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newRetractCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "retract <clause>",
		Short: "Retract the first clause matching the given text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := mgr.Retract(cmd.Context(), sessionID, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d clause(s) removed\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

// royalFamily is the demo ontology: facts plus rules deriving parent and
// grandparent relations.
const royalFamily = `father(philip, charles).
father(charles, william).
father(william, george).
mother(elizabeth, charles).
mother(diana, william).
mother(kate, george).
parent(X, Y) :- father(X, Y).
parent(X, Y) :- mother(X, Y).
grandparent(X, Z) :- parent(X, Y), parent(Y, Z).`

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the royal family demo against a scripted offline provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Force the scripted provider so the demo runs offline, and
			// keep answers deterministic.
			cfg.LLM.Provider = "mock"
			plainAnswers = true

			mgr, cleanup, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := mgr.Create(cmd.Context(), royalFamily)
			if err != nil {
				return err
			}
			defer func() { _ = mgr.Delete(cmd.Context(), id) }()

			questions := []string{
				"Who is the grandparent of george?",
				"Is charles the father of william?",
				"Who is the mother of arthur?",
			}
			for _, q := range questions {
				resp, err := mgr.Query(cmd.Context(), id, q, "")
				if err != nil {
					return err
				}
				fmt.Printf("Q: %s\nA: %s  (query: %v)\n\n", q, resp.Answer, resp.DebugInfo["query"])
			}
			return nil
		},
	}
}

// demoProvider scripts translations for the demo questions and answers
// plainly otherwise.
func demoProvider() *provider.Mock {
	m := provider.NewMock(
		provider.MockRule{Contains: "grandparent of george", Response: "grandparent(X, george)."},
		provider.MockRule{Contains: "charles the father of william", Response: "father(charles, william)."},
		provider.MockRule{Contains: "mother of arthur", Response: "mother(X, arthur)."},
	)
	m.Fallback = "CANNOT_CONVERT"
	return m
}
