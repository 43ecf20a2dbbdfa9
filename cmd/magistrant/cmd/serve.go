package cmd

import (
	"fmt"
	"log/slog"

	"magistrant/internal/components/telemetry"
	"magistrant/internal/telegram"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the Telegram bot until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.config.Telegram.Validate()
		if err != nil {
			return fmt.Errorf("%w (or set %s)", err, envTelegramToken)
		}

		telemetry.InstrumentPerfStats(ctx, a.tel)

		client := telegram.NewClient(
			a.config.Telegram.BaseUrl,
			a.config.Telegram.Token,
			a.config.Telegram.PollTimeout(),
			a.tel,
		)
		bot := telegram.NewBot(telegram.BotOptions{
			Messenger: client,
			Plans:     a.plans,
			Config:    a.config.Telegram,
			Tel:       a.tel,
		})

		slog.Info("bot started", "store", a.config.Store.Driver)
		return bot.Run(ctx, client)
	},
}
