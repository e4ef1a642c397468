package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/mqbridge/internal/config"
	"github.com/shaiso/mqbridge/internal/mq"
)

// queueRow — очередь и её роль.
type queueRow struct {
	Role  string `json:"role"`
	Queue string `json:"queue"`
}

// queueTable — очереди бриджа. Незаданная dead очередь выводится как "-".
type queueTable []queueRow

func (t queueTable) Header() []string { return []string{"ROLE", "QUEUE"} }

func (t queueTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, q := range t {
		rows[i] = []string{q.Role, q.Queue}
	}
	return rows
}

// NewTopologyCmd создаёт команду вывода очередей.
func NewTopologyCmd(configFn func() string, outputFn func() *Output) *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Show the queues used by the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			cfg, err := config.Load(configFn())
			if err != nil {
				return err
			}

			queues := cfg.MQQueues()
			if tree && !out.jsonMode {
				out.Text(mq.TopologyInfo(queues, mq.AckMode(cfg.Consumer.AckMode)))
				return nil
			}

			return out.Render(queueTable{
				{Role: "process", Queue: queues.Process},
				{Role: "success", Queue: queues.Success},
				{Role: "error", Queue: queues.Error},
				{Role: "dead", Queue: queues.Dead},
			})
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "Print the topology as a tree")

	return cmd
}
