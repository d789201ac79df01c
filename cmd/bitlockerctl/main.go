package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/bitlockerctl/bitlockerctl/internal/bitlocker"
	"github.com/bitlockerctl/bitlockerctl/internal/command"
	"github.com/bitlockerctl/bitlockerctl/internal/config"
	"github.com/bitlockerctl/bitlockerctl/internal/log"
	"github.com/bitlockerctl/bitlockerctl/internal/mount"
	"github.com/bitlockerctl/bitlockerctl/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:  "bitlockerctl",
		Usage: "Lock and unlock BitLocker-encrypted volumes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
				Value:   config.DefaultConfigPath,
			},
			&cli.StringFlag{
				Name:    "powershell",
				Aliases: []string{"P"},
				Usage:   "Path to the PowerShell executable",
			},
			&cli.StringFlag{
				Name:    "mount-point",
				Aliases: []string{"m"},
				Usage:   "Mount point of the BitLocker volume (e.g. E:)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file (rotated) instead of stderr",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "unlock",
				Usage: "Unlock the volume with a password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Volume password (prompted when omitted)",
					},
					&cli.StringFlag{
						Name:  "password-env",
						Usage: "Name of an environment variable holding the volume password",
					},
					&cli.BoolFlag{
						Name:  "no-output",
						Usage: "Discard the utility's output instead of logging it",
					},
					&cli.IntFlag{
						Name:    "retries",
						Aliases: []string{"r"},
						Usage:   "Retry attempts when the utility exits non-zero",
					},
				},
				Action: runUnlock,
			},
			{
				Name:  "lock",
				Usage: "Lock the volume, force-dismounting it",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-output",
						Usage: "Discard the utility's output instead of logging it",
					},
					&cli.IntFlag{
						Name:    "retries",
						Aliases: []string{"r"},
						Usage:   "Retry attempts when the utility exits non-zero",
					},
				},
				Action: runLock,
			},
			{
				Name:   "status",
				Usage:  "Report whether the volume is locked or unlocked",
				Action: runStatus,
			},
			{
				Name:   "letters",
				Usage:  "List drive letters not currently in use",
				Action: runLetters,
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println(version.String())
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config, layers CLI flags over it and initializes
// logging. Flags win over config file values, which win over defaults.
func setup(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.Merge(
		cmd.String("powershell"),
		cmd.String("mount-point"),
		cmd.String("log-file"),
	)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.Setup(cmd.Bool("verbose"), cfg.LogFile)
	return cfg, nil
}

func newVolume(cfg *config.Config) (*bitlocker.Volume, error) {
	if cfg.MountPoint == "" {
		return nil, fmt.Errorf("mount point is required (use --mount-point or set 'mount_point' in the config file)")
	}

	return bitlocker.New(cfg.Powershell, cfg.MountPoint, mount.NewInspector(), command.NewExecRunner()), nil
}

func runUnlock(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	vol, err := newVolume(cfg)
	if err != nil {
		return err
	}

	password, err := resolvePassword(cmd)
	if err != nil {
		return err
	}

	captureOutput := !cmd.Bool("no-output")
	err = withRetries(ctx, int(cmd.Int("retries")), func() error {
		return vol.Unlock(ctx, password, captureOutput)
	})

	if errors.Is(err, bitlocker.ErrAlreadyUnlocked) {
		log.Warn("volume is already unlocked, continuing", "mount_point", vol.MountPoint)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unlock %s: %w", vol.MountPoint, err)
	}

	log.Info("volume unlocked", "mount_point", vol.MountPoint)
	return nil
}

func runLock(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	vol, err := newVolume(cfg)
	if err != nil {
		return err
	}

	captureOutput := !cmd.Bool("no-output")
	err = withRetries(ctx, int(cmd.Int("retries")), func() error {
		return vol.Lock(ctx, captureOutput)
	})

	if errors.Is(err, bitlocker.ErrAlreadyLocked) {
		log.Warn("volume is already locked, continuing", "mount_point", vol.MountPoint)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", vol.MountPoint, err)
	}

	log.Info("volume locked", "mount_point", vol.MountPoint)
	return nil
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	vol, err := newVolume(cfg)
	if err != nil {
		return err
	}

	state, err := vol.Status()
	if errors.Is(err, bitlocker.ErrNotFound) {
		fmt.Println("not found")
		return err
	}
	if err != nil {
		return fmt.Errorf("status of %s: %w", vol.MountPoint, err)
	}

	fmt.Println(state)
	return nil
}

func runLetters(ctx context.Context, cmd *cli.Command) error {
	if _, err := setup(cmd); err != nil {
		return err
	}

	letters, err := mount.AvailableLetters()
	if err != nil {
		return err
	}

	for _, letter := range letters {
		fmt.Println(letter)
	}
	return nil
}

// resolvePassword picks the password from the flag, then the named
// environment variable, then an interactive no-echo prompt.
func resolvePassword(cmd *cli.Command) (string, error) {
	if password := cmd.String("password"); password != "" {
		return password, nil
	}

	if name := cmd.String("password-env"); name != "" {
		if password := os.Getenv(name); password != "" {
			return password, nil
		}
		return "", fmt.Errorf("environment variable %s is empty or unset", name)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password given and stdin is not a terminal (use --password or --password-env)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(raw), nil
}

// withRetries retries op with exponential backoff, but only when the
// encryption utility itself failed. Precondition and spawn failures are
// permanent; retrying cannot change them.
func withRetries(ctx context.Context, retries int, op func() error) error {
	if retries <= 0 {
		return op()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.MaxInterval = 16 * time.Second
	policy.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()

		var execErr *bitlocker.ExecutionError
		if err != nil && !errors.As(err, &execErr) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Warn("utility failed, will retry", "attempt", attempt, "error", err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
}
