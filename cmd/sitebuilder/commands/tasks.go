package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// TasksCmd implements the 'tasks' command.
type TasksCmd struct{}

func (*TasksCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	p, err := newProject(cfg, false)
	if err != nil {
		return err
	}
	return listTasks(os.Stdout, p)
}

func listTasks(out io.Writer, p *project) error {
	order, err := p.registry.ResolveOrder(site.BuildTasks)
	if err != nil {
		return pipeline.Classify(err)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TASK\tKIND\tDEPENDS ON\tINPUTS\tDESCRIPTION")
	for _, name := range p.registry.Names() {
		t, _ := p.registry.Get(name)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.Kind, orDash(t.Deps), orDash(t.Inputs), t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\nBuild order: %s\n", strings.Join(order, " -> "))
	return err
}

func orDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
