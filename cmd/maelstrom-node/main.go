package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vx-labs/maelstrom-node/cli"
	"github.com/vx-labs/maelstrom-node/services/broadcast"
	"github.com/vx-labs/maelstrom-node/services/counter"
	"github.com/vx-labs/maelstrom-node/services/echo"
	"github.com/vx-labs/maelstrom-node/services/gset"
	"github.com/vx-labs/maelstrom-node/services/txn"
)

func main() {
	root := &cobra.Command{
		Use:   "maelstrom-node",
		Short: "Workload nodes for the Maelstrom distributed-systems test harness",
	}

	echoCmd := &cobra.Command{
		Use:   "echo",
		Short: "Run the echo workload",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cli.Bootstrap()
			ctx.Run(echo.New(ctx.Node, ctx.Logger))
		},
	}

	broadcastCmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Run the flood broadcast workload",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cli.Bootstrap()
			ctx.Run(broadcast.New(ctx.Node, ctx.Logger, viper.GetDuration("broadcast_retry_interval")))
		},
	}
	broadcastCmd.Flags().Duration("retry-interval", 100*time.Millisecond, "Delay between retransmissions of unacknowledged broadcasts")
	viper.BindPFlag("broadcast_retry_interval", broadcastCmd.Flags().Lookup("retry-interval"))

	counterCmd := &cobra.Command{
		Use:   "counter",
		Short: "Run the grow-only counter workload",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cli.Bootstrap()
			ctx.Run(counter.New(ctx.Node, ctx.Logger, viper.GetDuration("counter_gossip_interval")))
		},
	}
	counterCmd.Flags().Duration("gossip-interval", 1*time.Second, "Delay between anti-entropy gossip rounds")
	viper.BindPFlag("counter_gossip_interval", counterCmd.Flags().Lookup("gossip-interval"))

	gsetCmd := &cobra.Command{
		Use:   "gset",
		Short: "Run the grow-only set workload",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cli.Bootstrap()
			ctx.Run(gset.New(ctx.Node, ctx.Logger, viper.GetDuration("gset_gossip_interval")))
		},
	}
	gsetCmd.Flags().Duration("gossip-interval", 5*time.Second, "Delay between anti-entropy gossip rounds")
	viper.BindPFlag("gset_gossip_interval", gsetCmd.Flags().Lookup("gossip-interval"))

	txnCmd := &cobra.Command{
		Use:   "txn",
		Short: "Run the single-node list-append transaction workload",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cli.Bootstrap()
			ctx.Run(txn.New(ctx.Node, ctx.Logger))
		},
	}

	root.AddCommand(echoCmd, broadcastCmd, counterCmd, gsetCmd, txnCmd)
	root.Execute()
}
