// Command dbcore is a thin command-line front end over the connection
// and query core: connect to a configured target, run a statement,
// page results, dump the schema tree.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kasuganosora/dbcore/pkg/adapter"
	_ "github.com/kasuganosora/dbcore/pkg/adapter/mysql"
	_ "github.com/kasuganosora/dbcore/pkg/adapter/oracle"
	_ "github.com/kasuganosora/dbcore/pkg/adapter/postgresql"
	_ "github.com/kasuganosora/dbcore/pkg/adapter/sqlite"
	"github.com/kasuganosora/dbcore/pkg/config"
	"github.com/kasuganosora/dbcore/pkg/conn"
	"github.com/kasuganosora/dbcore/pkg/exec"
	"github.com/kasuganosora/dbcore/pkg/logging"
	"github.com/kasuganosora/dbcore/pkg/pager"
	"github.com/kasuganosora/dbcore/pkg/schema"
)

func main() {
	app := &cli.Command{
		Name:  "dbcore",
		Usage: "uniform query access across database backends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file",
				Value:   "dbcore.yaml",
				Sources: cli.EnvVars("DBCORE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "named target to connect to",
				Sources: cli.EnvVars("DBCORE_TARGET"),
			},
		},
		Commands: []*cli.Command{
			queryCommand(),
			schemaCommand(),
			targetsCommand(),
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type env struct {
	cfg *config.Config
	log *zap.Logger
	mgr *conn.Manager
}

func setup(ctx context.Context, cmd *cli.Command) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	profile, err := cfg.Profile(cmd.String("target"))
	if err != nil {
		return nil, err
	}

	mgr := conn.NewManager(conn.WithLogger(log))
	if _, err := mgr.Connect(ctx, profile); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, mgr: mgr}, nil
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run a statement and print pages of results",
		ArgsUsage: "<sql>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "page",
				Usage: "page index to print (repeat runs print consecutive pages)",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "pages",
				Usage: "number of pages to print",
				Value: 1,
			},
		},
		Action: runQuery,
	}
}

func runQuery(ctx context.Context, cmd *cli.Command) error {
	sql := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if sql == "" {
		return fmt.Errorf("no statement given")
	}

	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.mgr.Disconnect(context.Background())

	executor := exec.NewExecutor(e.mgr,
		exec.WithLogger(e.log),
		exec.WithFetchSize(e.cfg.Executor.FetchSize),
		exec.WithTimeout(time.Duration(e.cfg.Executor.QueryTimeoutMS)*time.Millisecond),
	)

	handle, err := executor.RunQuery(ctx, sql)
	if err != nil {
		return err
	}
	defer handle.Cancel()

	if !handle.Class().ReturnsRows() {
		fmt.Printf("ok, %d row(s) affected\n", handle.RowsAffected())
		return nil
	}

	pg := pager.New(handle,
		pager.WithPageSize(e.cfg.Pager.PageSize),
		pager.WithMaxPages(e.cfg.Pager.MaxPages),
	)

	cols := handle.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	fmt.Println(strings.Join(names, "\t"))

	first := int(cmd.Int("page"))
	for i := 0; i < int(cmd.Int("pages")); i++ {
		rows, err := pg.Page(ctx, first+i)
		if err != nil {
			return err
		}
		for _, row := range rows {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = v.Render()
			}
			fmt.Println(strings.Join(cells, "\t"))
		}
		if len(rows) == 0 {
			break
		}
	}
	return nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "print the normalized schema tree",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "introspect every visible schema",
			},
		},
		Action: runSchema,
	}
}

func runSchema(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.mgr.Disconnect(context.Background())

	intro := schema.NewIntrospector(e.mgr, schema.WithLogger(e.log))

	var tree *schema.Tree
	if cmd.Bool("all") {
		tree, err = intro.GetSchemaAll(ctx)
	} else {
		tree, err = intro.GetSchema(ctx)
	}
	if err != nil {
		return err
	}

	for _, s := range tree.Schemas {
		suffix := ""
		if s.Partial {
			suffix = " (partial)"
		}
		fmt.Printf("%s%s\n", s.Name, suffix)
		for _, t := range s.Tables {
			suffix = ""
			if t.Partial {
				suffix = " (partial)"
			}
			fmt.Printf("  %s%s\n", t.Name, suffix)
			for _, c := range t.Columns {
				null := "not null"
				if c.Nullable {
					null = "null"
				}
				fmt.Printf("    %-30s %-20s %-12s %s\n", c.Name, c.NativeType, c.Kind, null)
			}
			for _, ix := range t.Indexes {
				unique := ""
				if ix.Unique {
					unique = " unique"
				}
				fmt.Printf("    index %s(%s)%s\n", ix.Name, ix.Column, unique)
			}
			for _, cons := range t.Constraints {
				fmt.Printf("    constraint %s %s(%s)\n", cons.Name, cons.Type, cons.Column)
			}
		}
	}
	return nil
}

func targetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "targets",
		Usage: "list configured targets",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			names := make([]string, 0, len(cfg.Targets))
			for name := range cfg.Targets {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				target := cfg.Targets[name]
				kind, _ := adapter.ParseKind(target.Kind)
				fmt.Printf("%-20s %-10s %s:%d/%s\n", name, kind, target.Host, target.Port, target.Database)
			}
			return nil
		},
	}
}
