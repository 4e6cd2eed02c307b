package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nhle/mail-organizer/internal/autoreply"
	"github.com/nhle/mail-organizer/internal/credential"
	"github.com/nhle/mail-organizer/internal/engine"
	"github.com/nhle/mail-organizer/internal/logging"
	"github.com/nhle/mail-organizer/internal/mailbox"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/settings"
	"github.com/nhle/mail-organizer/internal/store"
)

var version = "dev"

var (
	configFlag   string
	addressFlag  string
	hostFlag     string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "mailorganizer",
	Short: "IMAP mailbox analytics and rule processing",
	Long: `Mail Organizer connects to an IMAP mailbox, reports on recent traffic,
files unseen messages by rule and sends an optional auto-reply.

Run without a subcommand to start the terminal UI.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", model.DefaultConfigPath(), "Path to the config file")
	pf.StringVar(&addressFlag, "address", "", "Mailbox address (overrides mailbox.address)")
	pf.StringVar(&hostFlag, "host", "", "IMAP host (overrides mailbox.imap_host)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// workspace is the wired application shared by every subcommand.
type workspace struct {
	cfg     *model.AppConfig
	logger  *log.Logger
	history *store.SQLiteStore
	engine  *engine.Engine
	closers []io.Closer
}

// openWorkspace loads the config and wires the engine. logTo selects the
// log destination; nil means the configured log file.
func openWorkspace(logTo io.Writer) (*workspace, error) {
	cfg, err := model.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	if addressFlag != "" {
		cfg.Mailbox.Address = addressFlag
	}
	if hostFlag != "" {
		cfg.Mailbox.IMAPHost = hostFlag
	}
	level := cfg.Log.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}

	ws := &workspace{cfg: cfg}
	if logTo != nil {
		ws.logger = logging.New(logTo, level)
	} else {
		logger, closer, err := logging.OpenFile(cfg.LogPath(), level)
		if err != nil {
			return nil, err
		}
		ws.logger = logger
		ws.closers = append(ws.closers, closer)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		ws.Close()
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	history, err := store.NewSQLiteStore(cfg.HistoryPath())
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.history = history
	ws.closers = append(ws.closers, history)

	sender := &autoreply.SMTPSender{Host: cfg.SMTP.Host, Port: cfg.SMTP.Port}
	ws.engine = engine.New(
		mailbox.NewSession(mailbox.WithLogger(ws.logger)),
		settings.NewRuleStore(cfg.RulesPath(), ws.logger),
		settings.NewAutoReplyStore(cfg.AutoReplyPath(), ws.logger),
		engine.WithReplier(autoreply.NewDispatcher(sender, ws.logger)),
		engine.WithHistory(history),
		engine.WithFolder(cfg.Mailbox.Folder),
		engine.WithLogger(ws.logger),
	)
	return ws, nil
}

// credentials returns the configured account with its stored secret.
// A missing or unreadable secret yields Credentials with an empty Secret.
func (ws *workspace) credentials() mailbox.Credentials {
	creds := mailbox.Credentials{
		Address: ws.cfg.Mailbox.Address,
		Host:    ws.cfg.Mailbox.IMAPHost,
		Port:    ws.cfg.Mailbox.IMAPPort,
	}
	if creds.Address == "" {
		return creds
	}
	secret, err := credential.MailboxSecret(creds.Address)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			ws.logger.Warn("could not read keyring", "address", creds.Address, "error", err)
		}
		return creds
	}
	creds.Secret = secret
	return creds
}

// connect logs in with the stored credentials, for non-interactive use.
func (ws *workspace) connect(ctx context.Context) error {
	creds := ws.credentials()
	if creds.Address == "" {
		return errors.New("no mailbox address: set mailbox.address or pass --address")
	}
	if creds.Secret == "" {
		return fmt.Errorf("no password for %s: set %s or log in once from the terminal UI", creds.Address, credential.PasswordEnv)
	}
	return ws.engine.Connect(ctx, creds)
}

// Close disconnects and releases the history store and log file.
func (ws *workspace) Close() {
	if ws.engine != nil && ws.engine.Connected() {
		if err := ws.engine.Disconnect(); err != nil {
			ws.logger.Warn("disconnect failed", "error", err)
		}
	}
	for i := len(ws.closers) - 1; i >= 0; i-- {
		ws.closers[i].Close()
	}
}
