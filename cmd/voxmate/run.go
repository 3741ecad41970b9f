package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/voxmate/voxmate/bot"
	"github.com/voxmate/voxmate/botexec"
	"github.com/voxmate/voxmate/internal/fsstore"
	"github.com/voxmate/voxmate/internal/logutil"
	"github.com/voxmate/voxmate/llm"
	"github.com/voxmate/voxmate/plan"
	"github.com/voxmate/voxmate/providers/openai"
	"github.com/voxmate/voxmate/session"
	"github.com/voxmate/voxmate/state"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the game session and serve chat commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}

	cmd.Flags().String("url", "", "Game session websocket URL.")
	cmd.Flags().String("owner", "", "Owner player name.")
	cmd.Flags().String("name", "", "Bot player name.")
	cmd.Flags().StringArray("call-name", nil, "Additional call names (repeatable).")
	_ = viper.BindPFlag("session.url", cmd.Flags().Lookup("url"))
	_ = viper.BindPFlag("owner", cmd.Flags().Lookup("owner"))
	_ = viper.BindPFlag("session.name", cmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("call_names", cmd.Flags().Lookup("call-name"))

	return cmd
}

func runBot(ctx context.Context) error {
	log, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}

	owner := strings.TrimSpace(viper.GetString("owner"))
	if owner == "" {
		return fmt.Errorf("missing owner (set --owner or %s_OWNER)", envPrefix)
	}
	name := strings.TrimSpace(viper.GetString("session.name"))
	if name == "" {
		name = "voxmate"
	}
	callNames := viper.GetStringSlice("call_names")
	callNames = append(callNames, name)

	stateDir, err := expandHome(viper.GetString("state.dir"))
	if err != nil {
		return err
	}
	if err := fsstore.EnsureDir(stateDir); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lists := state.LoadLists(stateDir, log)
	convo := state.LoadConvoLog(stateDir, log)
	convo.StartFlusher(ctx, viper.GetDuration("state.flush_interval"))

	var client llm.Client
	endpoint := strings.TrimSpace(viper.GetString("llm.endpoint"))
	apiKey := strings.TrimSpace(viper.GetString("llm.api_key"))
	if endpoint != "" && apiKey != "" {
		client = openai.New(endpoint, apiKey)
	}
	model := viper.GetString("llm.model")

	var planner plan.Planner
	if client != nil {
		planner = &plan.GenPlanner{
			Client:  client,
			Model:   model,
			Log:     log,
			History: convo.Messages,
		}
	} else {
		log.Info("planner_rules_only", "reason", "no language backend configured")
		planner = plan.RulePlanner{}
	}

	var sup *session.Supervisor
	connFn := func() session.Conn {
		if sup == nil {
			return nil
		}
		return sup.Conn()
	}

	mover := &bot.SessionMover{Conn: connFn}
	exec := &botexec.Executor{
		Mover: mover,
		Convo: convo,
		Log:   log,
	}

	b := bot.New(bot.Config{
		Owner:     owner,
		Name:      name,
		CallNames: callNames,
		Model:     model,
	}, bot.Deps{
		Lists:   lists,
		Convo:   convo,
		Planner: planner,
		Exec:    exec,
		Client:  client,
		Conn:    connFn,
		Log:     log,
	})
	mover.Online = b.Online
	exec.Reply = b.Reply
	exec.Command = b.Command

	sup = session.NewSupervisor(session.Config{
		URL:             viper.GetString("session.url"),
		Name:            name,
		Token:           viper.GetString("session.token"),
		ProtocolVersion: viper.GetString("session.protocol_version"),
		FallbackVersion: viper.GetString("session.fallback_version"),
		MaxAttempts:     viper.GetInt("session.max_attempts"),
		AttemptDelay:    viper.GetDuration("session.attempt_delay"),
		DisconnectDelay: viper.GetDuration("session.disconnect_delay"),
		ErrorDelay:      viper.GetDuration("session.error_delay"),
		KickDelay:       viper.GetDuration("session.kick_delay"),
		CycleDelay:      viper.GetDuration("session.cycle_delay"),
	}, session.WSDialer{}, b.Handlers, log)

	log.Info("bot_start", "owner", owner, "name", name, "state_dir", stateDir)
	sup.Run(ctx)
	log.Info("bot_stop")
	return nil
}

func expandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
