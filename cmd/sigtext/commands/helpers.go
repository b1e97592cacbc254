package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/tusharbhayani/SigText/internal/backend"
	"github.com/tusharbhayani/SigText/internal/config"
	"github.com/tusharbhayani/SigText/internal/model"
	"github.com/tusharbhayani/SigText/internal/resolve"
	"github.com/tusharbhayani/SigText/internal/scan"
	"github.com/tusharbhayani/SigText/internal/store"
	"github.com/tusharbhayani/SigText/internal/verify"
)

// loadConfig reads the config file, falling back to defaults when it
// does not exist.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Defaults()
	}
	return cfg
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// quietLogger suppresses everything below error, for commands whose
// stdout is the product.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.Cache.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening local cache: %w", err)
	}
	if cfg.Cache.DemoDirectory {
		seedDemoDirectory(st, logger)
	}
	return st, nil
}

// seedDemoDirectory populates an empty mirror with a demo organization
// so the degraded pipeline has something to resolve against.
func seedDemoDirectory(st *store.Store, logger *slog.Logger) {
	orgs, err := st.Organizations()
	if err != nil || len(orgs) > 0 {
		return
	}
	now := time.Now().UTC()
	err = st.ReplaceOrganizations([]model.Organization{{
		ID:            uuid.NewString(),
		Name:          "Demo Organization",
		WalletAddress: "0x00000000000000000000000000000000000d3m0",
		Status:        model.OrgVerified,
		Metadata:      map[string]string{"phone": "+15550100000"},
		CreatedAt:     now,
		UpdatedAt:     now,
	}})
	if err != nil {
		logger.Warn("seeding demo directory failed", "error", err)
	}
}

// buildService assembles the verification pipeline from config: remote
// checker when a backend is configured, the local heuristic otherwise.
func buildService(cfg *config.Config, st *store.Store, logger *slog.Logger) *verify.Service {
	var checker verify.Checker
	if cfg.Backend.Configured() {
		client := backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey)
		checker = &verify.RemoteChecker{Client: client}
	} else {
		checker = verify.HeuristicChecker{}
	}

	var dir resolve.Directory
	if st != nil {
		dir = resolve.MirrorDirectory{Store: st}
	}
	resolver := resolve.New(dir)

	scanner := scan.NewScanner(cfg.ScanDir)
	return verify.NewService(checker, resolver, st, scanner, logger)
}

// methodForInput classifies a free-text verification: messages arriving
// with a phone number are treated as SMS, the rest as manual entry.
func methodForInput(phone string) model.Method {
	if phone != "" {
		return model.MethodSMS
	}
	return model.MethodManual
}

// printOutcome renders a verification outcome for a terminal. Color is
// disabled when stdout is not a TTY.
func printOutcome(out *verify.Outcome) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	if out.Valid {
		verdict := color.New(color.FgGreen, color.Bold)
		if out.Mock {
			verdict.Println("VERIFIED (degraded local check)")
			fmt.Println("  No backend configured: only the signature shape was checked.")
		} else {
			verdict.Println("VERIFIED")
		}
		if out.OrgName != "" {
			fmt.Printf("  Organization: %s\n", out.OrgName)
		}
		if out.Duplicate {
			fmt.Println("  Already recorded: this signed message was verified before.")
		} else if out.MessageID != "" {
			fmt.Printf("  Message ID:   %s\n", out.MessageID)
		}
	} else {
		verdict := color.New(color.FgRed, color.Bold)
		verdict.Println("NOT VERIFIED")
		if out.Error != "" {
			fmt.Printf("  Reason: %s\n", out.Error)
		}
	}

	if out.Scan != nil && out.Scan.Verdict != scan.VerdictClean {
		warn := color.New(color.FgYellow, color.Bold)
		warn.Printf("  Content warning: %s\n", out.Scan.Verdict)
		for _, f := range out.Scan.Findings {
			fmt.Printf("    - %s (%s)\n", f.Name, f.Severity)
		}
	}
}
