package ping

import (
	"fmt"
	"time"

	"github.com/gridkv/gridkv-go/client"
	"github.com/gridkv/gridkv-go/client/common"
	"github.com/gridkv/gridkv-go/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	PingCmd = &cobra.Command{
		Use:     "ping",
		Short:   "Send liveness probes to the cluster",
		RunE:    run,
		PreRunE: processConfig,
	}

	pingCount    = 3
	pingInterval = time.Second
)

func init() {
	key := "count"
	PingCmd.Flags().Int(key, 3, util.WrapString("How many pings to send"))
	key = "interval"
	PingCmd.Flags().Duration(key, time.Second, util.WrapString("Pause between pings"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	pingCount = viper.GetInt("count")
	pingInterval = viper.GetDuration("interval")
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	config := util.GetClientConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	c, err := client.New(config)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	for i := 0; i < pingCount; i++ {
		rtt, err := c.Ping()
		if err != nil {
			fmt.Printf("ping %d/%d failed: %v\n", i+1, pingCount, err)
		} else {
			fmt.Printf("ping %d/%d: %s\n", i+1, pingCount, rtt)
		}

		if i+1 < pingCount {
			time.Sleep(pingInterval)
		}
	}

	return nil
}
