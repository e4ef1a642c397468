package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/mqbridge/internal/config"
	"github.com/shaiso/mqbridge/internal/invoker"
)

// actionRow — action с итоговым URL вызова.
type actionRow struct {
	Key    string `json:"key"`
	Verb   string `json:"verb"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// actionTable — таблица actions команды validate.
type actionTable []actionRow

func (t actionTable) Header() []string { return []string{"KEY", "METHOD", "URL"} }

func (t actionTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, a := range t {
		rows[i] = []string{a.Key, a.Method, a.URL}
	}
	return rows
}

// NewValidateCmd создаёт команду проверки конфигурации.
func NewValidateCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and list actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg, err := config.Load(configFn())
			if err != nil {
				return err
			}

			registry, err := cfg.Registry()
			if err != nil {
				return err
			}

			inv := invoker.New(invoker.Config{
				Host:  cfg.ServiceHost,
				Port:  cfg.ServicePort,
				Stage: cfg.ServiceStage,
			})

			table := make(actionTable, 0, registry.Len())
			for _, a := range registry.All() {
				table = append(table, actionRow{
					Key:    a.Key,
					Verb:   string(a.Verb),
					Method: a.Verb.Method(),
					URL:    inv.URL(a.Path),
				})
			}

			out.Notice("Configuration is valid: %d actions", len(table))
			return out.Render(table)
		},
	}
}
