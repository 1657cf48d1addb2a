// Package command implements the callsigd CLI, the standalone signaling
// daemon wiring a signaling.Transport and a call.Manager together, grounded
// on src/cmd/babble/command/run.go's cobra/viper flag wiring.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matrix-org/callsig/call"
	"github.com/matrix-org/callsig/config"
	"github.com/matrix-org/callsig/media"
	"github.com/matrix-org/callsig/signaling"
	"github.com/matrix-org/callsig/signaling/room"
	"github.com/matrix-org/callsig/signaling/wamp"
	"github.com/matrix-org/callsig/version"
	"github.com/matrix-org/callsig/webrtcx"
)

var (
	cfg      *config.CallConfig
	datadir  *string
	showVers *bool
)

func init() {
	cfg = config.NewDefaultCallConfig()

	cobra.OnInitialize(initConfig)

	datadir = rootCmd.PersistentFlags().StringP("datadir", "d", cfg.DataDir, "Base configuration directory")

	rootCmd.PersistentFlags().String("log", cfg.LogLevel, "Log level (debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().String("log-file", cfg.LogFile, "Mirror logs to this file in addition to stderr")
	rootCmd.PersistentFlags().String("party-id", cfg.OurPartyID, "Identifier for this device on outbound signaling envelopes")

	rootCmd.PersistentFlags().String("transport", cfg.Transport, "Signaling transport to use (room, wamp)")
	rootCmd.PersistentFlags().String("room-addr", cfg.RoomAddr, "Websocket URL for the room transport")
	rootCmd.PersistentFlags().String("wamp-addr", cfg.WampAddr, "host:port of the WAMP router for the wamp transport")
	rootCmd.PersistentFlags().String("wamp-realm", cfg.WampRealm, "WAMP realm to join")
	rootCmd.PersistentFlags().Bool("wamp-skip-verify", cfg.WampSkipVerify, "Skip TLS certificate verification for the wamp transport (testing only)")

	rootCmd.PersistentFlags().Bool("allow-fallback-ice", cfg.AllowFallbackICEServer, "Allow the well-known fallback STUN server when no ICE servers are configured")
	rootCmd.PersistentFlags().String("ice-addr", cfg.ICEAddress, "URI of a STUN/TURN server")
	rootCmd.PersistentFlags().String("ice-username", cfg.ICEUsername, "Username for the ICE server")
	rootCmd.PersistentFlags().String("ice-password", cfg.ICEPassword, "Password for the ICE server")

	showVers = rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version and exit")
}

func initConfig() {
	viper.AddConfigPath(*datadir)
	viper.SetConfigName("callsig")
	viper.BindPFlags(rootCmd.PersistentFlags())

	if err := viper.ReadInConfig(); err != nil {
		cfg.Logger().WithError(err).Debug("No config file found, using flags/defaults")
	}

	if err := viper.Unmarshal(cfg); err != nil {
		cfg.Logger().WithError(err).Warn("Failed to unmarshal config, using flags/defaults")
	}
}

var rootCmd = &cobra.Command{
	Use:   "callsigd",
	Short: "Call signaling daemon",
	Long:  "callsigd wires a signaling transport to a call-signaling engine and keeps the process alive to route invites, answers, and candidates between peers.",
	Run: func(cmd *cobra.Command, args []string) {
		if *showVers {
			fmt.Println(version.Version)
			return
		}

		logger := cfg.Logger()
		attachFileHook(logger.Logger, cfg.LogFile)

		transport, err := buildTransport(cfg, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to start signaling transport")
			return
		}

		manager := call.NewManager(call.ManagerParams{
			Transport:  transport,
			PCFactory:  webrtcx.NewPionFactory(logger),
			Acquirer:   noopAcquirer{},
			ICEServers: cfg.ICEServers(),
			OurPartyID: cfg.OurPartyID,
			Logger:     logger,
			OnIncomingCall: func(c *call.Call) {
				logger.WithFields(logrus.Fields{
					"call_id": c.CallID(),
					"room_id": c.RoomID(),
				}).Info("Incoming call ringing; awaiting embedder's Answer/Reject")
			},
		})

		logger.WithFields(logrus.Fields{
			"transport": cfg.Transport,
			"party-id":  cfg.OurPartyID,
		}).Info("callsigd running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("callsigd shutting down")
		manager.Stop()
	},
}

// buildTransport constructs the concrete signaling.Transport named by
// cfg.Transport, mirroring run.go's "!config.Inapp" branch that picks
// between a socket proxy and an in-process one.
func buildTransport(cfg *config.CallConfig, logger *logrus.Entry) (signaling.Transport, error) {
	switch cfg.Transport {
	case "room":
		return room.Dial(cfg.RoomAddr, cfg.AllowFallbackICEServer, logger)
	case "wamp":
		return wamp.NewClient(cfg.WampAddr, cfg.WampRealm, cfg.OurPartyID, cfg.WampSkipVerify, 0, cfg.AllowFallbackICEServer, nil, logger)
	default:
		return nil, fmt.Errorf("callsigd: unknown transport %q", cfg.Transport)
	}
}

// attachFileHook mirrors config.Config.Logger's prefixed-formatter setup by
// adding a second, file-backed hook via lfshook when a log file is
// configured, the conventional use of that dependency.
func attachFileHook(logger *logrus.Logger, path string) {
	if path == "" {
		return
	}
	hook := lfshook.NewHook(lfshook.PathMap{
		logrus.DebugLevel: path,
		logrus.InfoLevel:  path,
		logrus.WarnLevel:  path,
		logrus.ErrorLevel: path,
		logrus.FatalLevel: path,
		logrus.PanicLevel: path,
	}, logger.Formatter)
	logger.AddHook(hook)
}

// noopAcquirer always fails to capture media. Device enumeration and
// camera/microphone acquisition are an embedder's responsibility, not this
// daemon's — callsigd on its own routes signaling, it doesn't place or
// answer calls.
type noopAcquirer struct{}

func (noopAcquirer) Acquire(ctx context.Context, c media.Constraints) (*webrtcx.Stream, error) {
	return nil, errors.New("callsigd: no media.Acquirer configured; device capture is an embedder responsibility")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
