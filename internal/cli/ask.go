package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/papyrus/internal/config"
)

// AskCmd returns the ask command, a one-shot question against an
// ingested document.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <document-id> <question>",
		Short: "Ask a question about an ingested document",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runAsk,
	}

	cmd.Flags().String("session", "", "Existing session ID to continue")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	documentID := args[0]
	question := strings.Join(args[1:], " ")

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		session, err := application.chat.CreateSession(ctx, documentID)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		sessionID = session.ID
		fmt.Printf("session: %s\n", sessionID)
	}

	turn, err := application.chat.Ask(ctx, sessionID, question)
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	fmt.Println(turn.Answer)
	if len(turn.ChunkIDs) > 0 {
		fmt.Printf("\nsources: %s\n", strings.Join(turn.ChunkIDs, ", "))
	}
	return nil
}
