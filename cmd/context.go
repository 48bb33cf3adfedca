package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/emrgen/mediahub"
)

const (
	configFileName = "mediahub"
	configDir      = "./.tmp"
	defaultAddr    = "http://localhost:4020"
)

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

// Context is the server and user the CLI talks to.
type Context struct {
	Addr string `mapstructure:"addr"`
	User string `mapstructure:"user"`
}

func setContextCommand() *cobra.Command {
	var addr string
	var user string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		Run: func(cmd *cobra.Command, args []string) {
			if addr == "" && user == "" {
				color.Red(`missing: --addr or --user`)
				return
			}

			ctx := readContext()
			if addr != "" {
				ctx.Addr = addr
			}
			if user != "" {
				ctx.User = user
			}
			if err := writeContext(ctx); err != nil {
				fmt.Println("error writing config file: ", err)
				return
			}
			fmt.Println("context saved")
		},
	}

	command.Flags().StringVarP(&addr, "addr", "a", "", "server address")
	command.Flags().StringVarP(&user, "user", "u", "", "user id sent as X-User-ID")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := readContext()
			printField("Addr", ctx.Addr)
			printField("User", ctx.User)
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		Run: func(cmd *cobra.Command, args []string) {
			if err := writeContext(Context{Addr: defaultAddr}); err != nil {
				fmt.Println("error writing config file: ", err)
				return
			}
			fmt.Println("context reset")
		},
	}

	return command
}

func contextViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.AddConfigPath(configDir)
	v.SetConfigType("yml")
	return v
}

func writeContext(ctx Context) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	v := contextViper()
	v.Set("context.addr", ctx.Addr)
	v.Set("context.user", ctx.User)
	return v.WriteConfigAs(filepath.Join(configDir, configFileName+".yml"))
}

func readContext() Context {
	ctx := Context{Addr: defaultAddr}

	v := contextViper()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Println("error reading config file: ", err)
		}
		return ctx
	}

	if err := v.UnmarshalKey("context", &ctx); err != nil {
		fmt.Println("error unmarshalling config file: ", err)
	}
	if ctx.Addr == "" {
		ctx.Addr = defaultAddr
	}
	return ctx
}

// newClient connects to the server of the current context.
func newClient() (*mediahub.Client, error) {
	ctx := readContext()
	return mediahub.NewClient(ctx.Addr, ctx.User)
}

func printField(name, value string) {
	color.New(color.FgCyan).Printf("%s: ", name)
	fmt.Println(value)
}
