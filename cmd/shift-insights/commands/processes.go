package commands

import (
	"fmt"

	"github.com/shiftmetrics/shift-insights/internal/schema"
	"github.com/spf13/cobra"
)

func installProcessesCmd(app *App) {
	processesCmd := &cobra.Command{
		Use:   "processes",
		Short: "List the known processes and their portal IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.processesRun()
		},
	}

	app.cmd.AddCommand(processesCmd)
}

func (a *App) processesRun() error {
	catalog, err := schema.Load(a.config.Pull.SchemaFile)
	if err != nil {
		return err
	}
	catalog.MarkCritical(a.config.Pull.Critical...)

	for _, p := range catalog.Processes() {
		id := p.PortalID
		if id == "" {
			id = "-"
		}
		marker := ""
		if catalog.IsCritical(p.Name) {
			marker = "\tcritical"
		}
		fmt.Printf("%s\t%s%s\n", p.Name, id, marker)
	}
	return nil
}
