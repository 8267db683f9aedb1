// kaizenctl is the operator command line for KAIZEN passes: it signs,
// inspects and renders QR tokens with the same secret the server uses.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/app"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configDir string
	secret    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "kaizenctl",
		Short:        "Operator tooling for KAIZEN registration passes",
		SilenceUsage: true,
		Version:      version,
	}

	cmd.PersistentFlags().StringVar(&opts.configDir, "config", "", "Directory containing config.yaml")
	cmd.PersistentFlags().StringVar(&opts.secret, "secret", "", "QR signing secret (overrides config and "+app.EnvPrefix+"_QR_SECRET_KEY)")

	cmd.AddCommand(newQRCmd(opts))
	return cmd
}

// codec resolves the signing secret from the flag, then the config file and
// environment, then the built-in default.
func (o *rootOptions) codec(cmd *cobra.Command) (*qrcodec.Codec, error) {
	secret := strings.TrimSpace(o.secret)
	if secret == "" {
		var paths []string
		if o.configDir != "" {
			paths = append(paths, o.configDir)
		}
		cfg, err := app.LoadConfig(paths...)
		if err != nil {
			return nil, err
		}
		secret = strings.TrimSpace(cfg.QR.SecretKey)
	}
	if secret == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no QR secret configured, using the built-in default")
		secret = qrcodec.DefaultSecretKey
	}
	return qrcodec.New(secret)
}
