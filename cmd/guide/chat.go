package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/cortexguide/internal/agent"
	"github.com/normanking/cortexguide/internal/avatar"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the guide in the terminal",
		Long: `Talk to the guide in the terminal. The body runs headless.
Type /reset to clear the guide's mood and memory, /quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()
			if rt.agent.Brain() == nil {
				return fmt.Errorf("chat needs a language service: %w", agent.ErrNoBrain)
			}
			return chat(cmd.Context(), rt, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func chat(parent context.Context, rt *runtime, in io.Reader, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	if err := rt.body.StartPresence(); err != nil {
		return err
	}
	if err := rt.agent.Enter(ctx); err != nil {
		return err
	}
	defer rt.agent.Exit(context.Background())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tick(ctx, rt.body, rt.cfg.Server.TickRate) })

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		defer stop()
		name := rt.agent.Brain().Profile().Name

		if resp, ok, err := rt.agent.CloseRange(ctx); err == nil && ok {
			printResponse(out, name, resp)
		}
		for {
			fmt.Fprint(out, "> ")
			var line string
			select {
			case <-ctx.Done():
				return nil
			case l, ok := <-lines:
				if !ok {
					return nil
				}
				line = strings.TrimSpace(l)
			}

			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/reset":
				rt.agent.Reset()
				fmt.Fprintln(out, "(reset)")
				continue
			}

			resp, err := rt.agent.Say(ctx, line)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			printResponse(out, name, resp)
		}
	})
	return g.Wait()
}

func printResponse(out io.Writer, name string, resp avatar.Response) {
	fmt.Fprintf(out, "%s [%s/%s %.1f]: %s\n", name, resp.Emotion, resp.Gesture, resp.Intensity, resp.Text)
}
