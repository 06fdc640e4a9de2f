package util

import (
	"strings"

	"github.com/gridkv/gridkv-go/client/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the common client connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoints"
	cmd.PersistentFlags().String(key, "localhost:5701", WrapString("The addresses of the cluster members as a comma-separated list"))

	key = "transport"
	cmd.PersistentFlags().String(key, "tcp", WrapString("The transport to use (tcp, unix)"))

	key = "balancer"
	cmd.PersistentFlags().String(key, common.BalancerRoundRobin, WrapString("Target choice for untargeted invocations (roundrobin, random)"))

	key = "invocation-timeout"
	cmd.PersistentFlags().Duration(key, common.DefaultInvocationTimeout, WrapString("Absolute per-invocation deadline, shared by all retries of one invocation"))

	key = "retry-pause"
	cmd.PersistentFlags().Duration(key, common.DefaultRetryPause, WrapString("Pause between two send attempts of the same invocation"))

	key = "redo-operation"
	cmd.PersistentFlags().Bool(key, false, WrapString("Retry non-idempotent requests on retryable server errors. May execute an operation twice"))

	key = "partitions"
	cmd.PersistentFlags().Int32(key, 271, WrapString("Partition count of the cluster"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("Log level (debug, info, warn, error)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp transport only)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("Keepalive interval in seconds (tcp transport only)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the socket write buffer (in KB)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the socket read buffer (in KB)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("gridkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Endpoints:         strings.Split(viper.GetString("endpoints"), ","),
		Transport:         viper.GetString("transport"),
		Balancer:          viper.GetString("balancer"),
		InvocationTimeout: viper.GetDuration("invocation-timeout"),
		RetryPause:        viper.GetDuration("retry-pause"),
		RedoOperation:     viper.GetBool("redo-operation"),
		PartitionCount:    viper.GetInt32("partitions"),
		LogLevel:          viper.GetString("log-level"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		},
	}
}
