package ipcodingcli

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/CMSgov/ipcoding-app/ipcoding/constants"
	"github.com/CMSgov/ipcoding-app/ipcoding/derivation"
	"github.com/CMSgov/ipcoding-app/ipcoding/evidence"
	"github.com/CMSgov/ipcoding-app/ipcoding/kb"
	"github.com/CMSgov/ipcoding-app/ipcoding/models"
	"github.com/CMSgov/ipcoding-app/ipcoding/validation"
	"github.com/CMSgov/ipcoding-app/log"
	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// App Name and usage.  Edit them here to prevent breaking tests
const Name = "ipcoding"
const Usage = "Interventional pulmonology coding CLI"

const (
	red   = "\x1b[31m"
	green = "\x1b[32m"
	reset = "\x1b[0m"
)

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version
	app.Writer = colorable.NewColorableStdout()
	app.ErrWriter = colorable.NewColorableStderr()

	var kbPath, rvuTablePath, recordPath string
	kbFlag := cli.StringFlag{
		Name:        "kb",
		Usage:       "Path to the knowledge base document (defaults to IPCODING_KB_PATH)",
		Destination: &kbPath,
	}
	rvuTableFlag := cli.StringFlag{
		Name:        "rvu-table",
		Usage:       "Optional CMS RVU table (TSV) merged into the knowledge base",
		Destination: &rvuTablePath,
	}

	app.Commands = []cli.Command{
		{
			Name:     "validate-kb",
			Category: "Knowledge base tools",
			Usage:    "Validate a knowledge base before it is released",
			Flags:    []cli.Flag{kbFlag, rvuTableFlag},
			Action: func(c *cli.Context) error {
				cfg, err := settings(kbPath, rvuTablePath)
				if err != nil {
					return err
				}
				k, err := loadKB(cfg)
				if err != nil {
					return err
				}
				issues := validation.Validate(k)
				for _, issue := range issues {
					fmt.Fprintf(app.Writer, "%sFAIL%s %s\n", red, reset, issue)
				}
				if len(issues) > 0 {
					return errors.Errorf("knowledge base %s failed validation with %d issue(s)", cfg.KBPath, len(issues))
				}
				fmt.Fprintf(app.Writer, "%sOK%s knowledge base %s (version %s) passed validation\n", green, reset, cfg.KBPath, k.Version())
				return nil
			},
		},
		{
			Name:     "derive",
			Category: "Coding tools",
			Usage:    "Derive codes for a procedure record and print the derivation as JSON",
			Flags: []cli.Flag{kbFlag, rvuTableFlag,
				cli.StringFlag{
					Name:        "record",
					Usage:       "Path to the procedure record JSON",
					Destination: &recordPath,
				},
			},
			Action: func(c *cli.Context) error {
				if recordPath == "" {
					return errors.New("procedure record (--record) must be provided")
				}
				cfg, err := settings(kbPath, rvuTablePath)
				if err != nil {
					return err
				}
				store := kb.NewStore(cfg.KBPath, cfg.RVUTablePath, validation.Validate, log.KB)
				if err := store.Load(); err != nil {
					return err
				}

				data, err := ioutil.ReadFile(filepath.Clean(recordPath))
				if err != nil {
					return errors.Wrapf(err, "failed to read record %s", recordPath)
				}
				rec, err := models.DecodeRecord(data)
				if err != nil {
					return err
				}

				engine := derivation.NewEngine(store, evidence.NewRegexMatcher(cfg.EvidenceMaxBytes), log.Engine)
				out, err := json.MarshalIndent(engine.Apply(rec), "", "  ")
				if err != nil {
					return errors.Wrap(err, "failed to encode derivation")
				}
				fmt.Fprintf(app.Writer, "%s\n", out)
				return nil
			},
		},
		{
			Name:     "watch-kb",
			Category: "Knowledge base tools",
			Usage:    "Watch a knowledge base and report every reload until interrupted",
			Flags:    []cli.Flag{kbFlag, rvuTableFlag},
			Action: func(c *cli.Context) error {
				cfg, err := settings(kbPath, rvuTablePath)
				if err != nil {
					return err
				}
				store := kb.NewStore(cfg.KBPath, cfg.RVUTablePath, validation.Validate, log.KB)
				if err := store.Load(); err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "Serving knowledge base version %s\n", store.Snapshot().Version())

				ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
				defer stop()
				return watch(ctx, app, store, cfg)
			},
		},
	}
	return app
}

// settings resolves command flags against the configured defaults.
func settings(kbPath, rvuTablePath string) (*derivation.Config, error) {
	cfg, err := derivation.LoadConfig()
	if err != nil {
		return nil, err
	}
	if kbPath != "" {
		cfg.KBPath = kbPath
	}
	if rvuTablePath != "" {
		cfg.RVUTablePath = rvuTablePath
	}
	return cfg, nil
}

func loadKB(cfg *derivation.Config) (*kb.KnowledgeBase, error) {
	k, err := kb.LoadFile(cfg.KBPath)
	if err != nil {
		return nil, err
	}
	if cfg.RVUTablePath == "" {
		return k, nil
	}
	table, err := kb.ReadRVUTable(cfg.RVUTablePath, log.CLI)
	if err != nil {
		return nil, err
	}
	return k.WithRVUTable(table), nil
}

func watch(ctx context.Context, app *cli.App, store *kb.Store, cfg *derivation.Config) error {
	w := kb.NewWatcher(store, cfg.ReloadMaxElapsed(), log.KB)
	w.OnReload = func(err error) {
		if err != nil {
			fmt.Fprintf(app.Writer, "%sRejected%s %s\n", red, reset, err)
			return
		}
		fmt.Fprintf(app.Writer, "%sReloaded%s knowledge base version %s (generation %d)\n",
			green, reset, store.Snapshot().Version(), store.Generation())
	}
	return w.Run(ctx)
}
