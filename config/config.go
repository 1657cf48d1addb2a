// Package config holds the daemon's runtime configuration: signaling
// transport selection, ICE server resolution, and logging setup, the way
// src/config/config.go holds a Babble node's.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/matrix-org/callsig/webrtcx"
)

// Default configuration values.
const (
	DefaultLogLevel       = "info"
	DefaultTransport      = "room"
	DefaultRoomAddr       = "ws://127.0.0.1:8800/rooms"
	DefaultWampAddr       = "127.0.0.1:8801"
	DefaultWampRealm      = "callsig"
	DefaultWampSkipVerify = false
	DefaultICEAddress     = "stun:turn.matrix.org"
	DefaultICEUsername    = ""
	DefaultICEPassword    = ""
	DefaultAllowFallback  = true
	DefaultLogFile        = ""
)

// DefaultCertFile is the default name of the file containing the TLS
// certificate for connecting to the signaling server.
const DefaultCertFile = "cert.pem"

// CallConfig holds everything needed to stand up a call.Manager behind a
// concrete signaling.Transport, mirroring the shape of src/config.Config.
type CallConfig struct {
	// DataDir is the top-level directory for any on-disk state (currently
	// just the log file and TLS cert, since calls themselves are ephemeral
	// per §3's lifecycle).
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, if non-empty, mirrors logs to a file via lfshook in
	// addition to stderr.
	LogFile string `mapstructure:"log-file"`

	// OurPartyID identifies this device on outbound signaling envelopes
	// (§6).
	OurPartyID string `mapstructure:"party-id"`

	// Transport selects which signaling.Transport implementation the
	// daemon wires up: "room" (plain websocket) or "wamp" (WAMP realm).
	Transport string `mapstructure:"transport"`

	// RoomAddr is the websocket URL the "room" transport dials.
	RoomAddr string `mapstructure:"room-addr"`

	// WampAddr is the host:port of the WAMP router the "wamp" transport
	// connects to.
	WampAddr string `mapstructure:"wamp-addr"`

	// WampRealm is the administrative domain within the WAMP router that
	// signaling messages are routed within.
	WampRealm string `mapstructure:"wamp-realm"`

	// WampSkipVerify controls whether the wamp transport verifies the
	// router's TLS certificate chain. Only for testing.
	WampSkipVerify bool `mapstructure:"wamp-skip-verify"`

	// AllowFallbackICEServer controls whether the transport permits the
	// well-known fallback STUN server to be appended when the caller
	// supplies no ICE servers of its own (§6).
	AllowFallbackICEServer bool `mapstructure:"allow-fallback-ice"`

	// ICEAddress is the URI of a server providing STUN/TURN services. The
	// server should support password-based authentication, the same
	// contract as src/config.Config.ICEAddress.
	ICEAddress string `mapstructure:"ice-addr"`

	// ICEUsername authenticates with the server at ICEAddress.
	ICEUsername string `mapstructure:"ice-username"`

	// ICEPassword authenticates with the server at ICEAddress.
	ICEPassword string `mapstructure:"ice-password"`

	logger *logrus.Logger
}

// NewDefaultCallConfig returns a config object with default values, the way
// src/config.NewDefaultConfig does for a Babble node.
func NewDefaultCallConfig() *CallConfig {
	return &CallConfig{
		DataDir:                DefaultDataDir(),
		LogLevel:               DefaultLogLevel,
		LogFile:                DefaultLogFile,
		Transport:              DefaultTransport,
		RoomAddr:               DefaultRoomAddr,
		WampAddr:               DefaultWampAddr,
		WampRealm:              DefaultWampRealm,
		WampSkipVerify:         DefaultWampSkipVerify,
		AllowFallbackICEServer: DefaultAllowFallback,
		ICEAddress:             DefaultICEAddress,
		ICEUsername:            DefaultICEUsername,
		ICEPassword:            DefaultICEPassword,
	}
}

// CertFile returns the full path of the file containing the signal-server
// TLS certificate.
func (c *CallConfig) CertFile() string {
	return filepath.Join(c.DataDir, DefaultCertFile)
}

// ICEServers returns the ICE server list resolved from this configuration.
// Mirrors src/config.Config.ICEServers, generalized from a single server to
// a list, with the same "append fallback only if the caller list is empty
// and the transport permits" gating handled downstream by
// call.ResolveICEServers.
func (c *CallConfig) ICEServers() []webrtcx.ICEServer {
	if c.ICEAddress == "" {
		return nil
	}
	return []webrtcx.ICEServer{
		{
			URLs:           []string{c.ICEAddress},
			Username:       c.ICEUsername,
			Credential:     c.ICEPassword,
			CredentialType: "password",
		},
	}
}

// Logger returns a formatted logrus Entry, with prefix set to "callsig".
func (c *CallConfig) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "callsig")
}

// DefaultDataDir returns the default directory name for top-level callsig
// config, based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	home := HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, ".Callsig")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Callsig")
	default:
		return filepath.Join(home, ".callsig")
	}
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}
