package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

var (
	chatSession string
	chatQuiet   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Start an interactive session. Type exit, quit or q to leave.

Examples:
  bankbot chat
  bankbot chat --session alice --env .env.local
  bankbot chat -q`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id (random when empty)")
	chatCmd.Flags().BoolVarP(&chatQuiet, "quiet", "q", false, "silence logs while chatting")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if chatQuiet {
		logx.Disable()
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sessionID := strings.TrimSpace(chatSession)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Bank assistant ready (session %s). Type 'exit' to quit.\n", sessionID)
	return chatLoop(ctx, cmd.InOrStdin(), out, func(ctx context.Context, text string) (string, error) {
		return a.orchestrator.HandleMessage(ctx, sessionID, text)
	})
}

func chatLoop(ctx context.Context, in io.Reader, out io.Writer, handle func(context.Context, string) (string, error)) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		switch strings.ToLower(text) {
		case "exit", "quit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := handle(ctx, text)
		if reply != "" {
			fmt.Fprintf(out, "Assistant: %s\n", reply)
		}
		if err != nil {
			fmt.Fprintf(out, "(error: %v)\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
