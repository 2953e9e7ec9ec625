// Command slnctl is a local operator CLI for one repository: submit
// content, create accounts, and look up indexed metadata without going
// through the (out-of-scope) HTTP front-end.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"stronglink/extractor"
	"stronglink/repo"
	"stronglink/session"
	"stronglink/submission"
)

var repository *repo.Repo
var logger *zap.SugaredLogger

func main() {
	app := &cli.App{
		Name:  "slnctl",
		Usage: "operate a StrongLink-style content-addressed repository",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Value:   "./sln-data",
				Usage:   "repository data directory",
				EnvVars: []string{"SLN_DATA_DIR"},
			},
			&cli.UintFlag{
				Name:  "registration-mode",
				Value: uint(session.ModeRead | session.ModeWrite),
				Usage: "capability mode (bitmask) granted to accounts created through this repo",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug-level logging",
			},
		},
		Before: func(c *cli.Context) error {
			z, err := newLogger(c.Bool("debug"))
			if err != nil {
				return err
			}
			logger = z.Sugar()

			r, err := repo.Open(repo.Options{
				DataDir:          c.String("data-dir"),
				RegistrationMode: session.Mode(c.Uint("registration-mode")),
			}, logger)
			if err != nil {
				return fmt.Errorf("open repo: %w", err)
			}
			repository = r
			return nil
		},
		After: func(c *cli.Context) error {
			if repository != nil {
				return repository.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			bootstrapCommand,
			submitCommand,
			createUserCommand,
			fileInfoCommand,
			fieldValueCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

var submitCommand = &cli.Command{
	Name:  "submit",
	Usage: "submit a file (or stdin) as new content",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "MIME type", Required: true},
		&cli.StringFlag{Name: "title", Usage: "out-of-band title, if any"},
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "path to read; defaults to stdin"},
		&cli.Uint64Flag{Name: "user-id", Usage: "submitter user id to record", Value: 0},
	},
	Action: func(c *cli.Context) error {
		var r io.Reader = os.Stdin
		if path := c.String("file"); path != "" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		content, meta, err := submission.QuickPair(repository.Blobs(), logger, c.Uint64("user-id"), c.String("type"), r, c.String("title"))
		if err != nil {
			return err
		}
		defer content.Release()
		if meta != nil {
			defer meta.Release()
		}

		if err := content.AddFile(); err != nil {
			return err
		}
		batch := []*submission.Submission{content}
		if meta != nil {
			if err := meta.AddFile(); err != nil {
				return err
			}
			batch = append(batch, meta)
		}

		sortID, err := repository.StoreBatch(batch)
		if err != nil {
			return err
		}

		fmt.Printf("primary URI: %s\n", content.PrimaryURI())
		fmt.Printf("sort id: %d\n", sortID)
		return nil
	},
}

var bootstrapCommand = &cli.Command{
	Name:  "bootstrap",
	Usage: "create the repository's first account (no authentication required)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "username", Required: true},
		&cli.StringFlag{Name: "password", Required: true},
		&cli.UintFlag{Name: "mode", Value: uint(session.ModeRead | session.ModeWrite | session.ModeAdmin)},
	},
	Action: func(c *cli.Context) error {
		user, err := repository.Bootstrap(c.String("username"), c.String("password"), session.Mode(c.Uint("mode")))
		if err != nil {
			return err
		}
		fmt.Printf("created user id %d (%s)\n", user.UserID, user.Username)
		return nil
	},
}

var createUserCommand = &cli.Command{
	Name:  "create-user",
	Usage: "authenticate as an existing user and create a new account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "as-username", Required: true},
		&cli.StringFlag{Name: "as-password", Required: true},
		&cli.StringFlag{Name: "username", Required: true},
		&cli.StringFlag{Name: "password", Required: true},
	},
	Action: func(c *cli.Context) error {
		s, err := repository.Authenticate(c.String("as-username"), c.String("as-password"))
		if err != nil {
			return err
		}
		defer s.Release()

		user, err := s.CreateUser(c.String("username"), c.String("password"))
		if err != nil {
			return err
		}
		fmt.Printf("created user id %d (%s)\n", user.UserID, user.Username)
		return nil
	},
}

var fileInfoCommand = &cli.Command{
	Name:  "file-info",
	Usage: "resolve a content URI to its file record",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "as-username", Required: true},
		&cli.StringFlag{Name: "as-password", Required: true},
		&cli.StringFlag{Name: "uri", Required: true},
	},
	Action: func(c *cli.Context) error {
		s, err := repository.Authenticate(c.String("as-username"), c.String("as-password"))
		if err != nil {
			return err
		}
		defer s.Release()

		info, err := s.GetFileInfo(c.String("uri"))
		if err != nil {
			return err
		}
		fmt.Printf("hash: %s\npath: %s\ntype: %s\nsize: %d\n", info.Hash, info.Path, info.Type, info.Size)
		return nil
	},
}

var fieldValueCommand = &cli.Command{
	Name:  "field-value",
	Usage: "look up the first value of a meta-file field targeting a URI",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "as-username", Required: true},
		&cli.StringFlag{Name: "as-password", Required: true},
		&cli.StringFlag{Name: "uri", Required: true},
		&cli.StringFlag{Name: "field", Required: true},
		&cli.IntFlag{Name: "max-bytes", Value: extractor.FTSMax},
	},
	Action: func(c *cli.Context) error {
		s, err := repository.Authenticate(c.String("as-username"), c.String("as-password"))
		if err != nil {
			return err
		}
		defer s.Release()

		value, err := s.GetValueForField(c.String("uri"), c.String("field"), c.Int("max-bytes"))
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}
