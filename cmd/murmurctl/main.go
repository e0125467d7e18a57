// Operator tool for the review queue. Talks to the database directly, so it
// runs with the same environment as the server.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sujalbistaa/murmur/internal/app"
	"github.com/sujalbistaa/murmur/internal/config"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/models"
	"github.com/sujalbistaa/murmur/internal/moderation"
)

func main() {
	config.LoadDotEnvs()

	ctl := &cli.App{
		Name:  "murmurctl",
		Usage: "murmur moderation queue tool",
	}

	ctl.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity",
			Value:   "warn",
			EnvVars: []string{"MURMURCTL_LOG_LEVEL"},
		},
	}
	ctl.Before = func(cctx *cli.Context) error {
		Init("murmurctl", os.Getenv("MURMUR_ENV"), cctx.String("log-level"))
		return nil
	}
	ctl.Commands = []*cli.Command{
		&cli.Command{
			Name:  "pending",
			Usage: "list confessions waiting for review",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "status",
					Usage: "pending, approved or rejected",
					Value: string(models.StatusPending),
				},
				&cli.IntFlag{
					Name:  "limit",
					Usage: "max number of confessions",
					Value: 50,
				},
			},
			Action: listPosts,
		},
		&cli.Command{
			Name:      "approve",
			Usage:     "publish a confession",
			ArgsUsage: "<id>",
			Action:    postAction("approve"),
		},
		&cli.Command{
			Name:      "reject",
			Usage:     "reject a confession",
			ArgsUsage: "<id>",
			Action:    postAction("reject"),
		},
		&cli.Command{
			Name:      "delete",
			Usage:     "delete a confession with its replies, reactions, votes and reports",
			ArgsUsage: "<id>",
			Action:    postAction("delete"),
		},
		&cli.Command{
			Name:  "reports",
			Usage: "show the report queue",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "handled",
					Usage: "show handled reports instead of open ones",
				},
			},
			Action: listReports,
		},
		&cli.Command{
			Name:      "classify",
			Usage:     "run text through the moderation pipeline without storing it",
			ArgsUsage: "<text>",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "reply",
					Usage: "use reply length bounds",
				},
			},
			Action: classifyText,
		},
	}
	ctl.RunAndExitOnError()
}

func loadServices() (*app.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Build(cfg)
}

func listPosts(cctx *cli.Context) error {
	s, err := loadServices()
	if err != nil {
		return err
	}
	defer s.Close()

	items, err := s.Content.ListByStatus(cctx.Context, models.Status(cctx.String("status")), cctx.Int("limit"))
	if err != nil {
		return err
	}
	for _, p := range items {
		fmt.Printf("%s\t%s\t%s/%s\t%s\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04"), p.City, p.Category, preview(p.Content))
	}
	return nil
}

func postAction(action string) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		id := cctx.Args().First()
		if id == "" {
			return fmt.Errorf("expected a confession id")
		}
		s, err := loadServices()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cctx.Context
		switch action {
		case "approve":
			_, err = s.Content.Approve(ctx, id)
		case "reject":
			_, err = s.Content.Reject(ctx, id)
		case "delete":
			err = s.Content.Delete(ctx, id)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", action, id)
		return nil
	}
}

func listReports(cctx *cli.Context) error {
	s, err := loadServices()
	if err != nil {
		return err
	}
	defer s.Close()

	handled := cctx.Bool("handled")
	entries, err := s.Reports.Queue(cctx.Context, &handled, 0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		target := "(orphaned)"
		if e.Post != nil {
			target = fmt.Sprintf("[%s] %s", e.Post.Status, preview(e.Post.Content))
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", e.ID, e.PostID, e.Reason, target)
	}
	return nil
}

func classifyText(cctx *cli.Context) error {
	text := strings.Join(cctx.Args().Slice(), " ")
	if text == "" {
		return fmt.Errorf("expected some text to classify")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	engine, err := app.Engine(cfg)
	if err != nil {
		return err
	}

	kind := moderation.KindPost
	if cctx.Bool("reply") {
		kind = moderation.KindReply
	}
	d := engine.Classify(context.Background(), kind, text)

	// Detail is hidden from API responses; operators get to see it here
	out, err := json.MarshalIndent(struct {
		moderation.Decision
		Detail string `json:"detail,omitempty"`
	}{d, d.Detail}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:60]) + "…"
	}
	return s
}
