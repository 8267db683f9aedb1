package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/services"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/qrcodec"
)

func newQRCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Encode, verify and render pass tokens",
	}
	cmd.AddCommand(
		newQREncodeCmd(opts, false),
		newQREncodeCmd(opts, true),
		newQRDecodeCmd(opts),
		newQRCodeCmd(opts),
		newQRImageCmd(opts),
	)
	return cmd
}

func newQREncodeCmd(opts *rootOptions, legacy bool) *cobra.Command {
	var input qrcodec.PayloadInput

	use, short := "encode", "Sign a new pass token"
	if legacy {
		use, short = "legacy-encode", "Sign a pass in the older encrypted format"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(input.RegistrationID) == "" || strings.TrimSpace(input.EventID) == "" {
				return errors.New("--registration-id and --event-id are required")
			}
			codec, err := opts.codec(cmd)
			if err != nil {
				return err
			}

			payload := codec.NewPayload(input)
			token := codec.Encode(payload)
			if legacy {
				if token, err = codec.EncodeLegacy(payload); err != nil {
					return fmt.Errorf("encode legacy token: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&input.RegistrationID, "registration-id", "", "Registration identifier")
	f.StringVar(&input.EventID, "event-id", "", "Event identifier ("+services.FestEventID+" for fest passes)")
	f.StringVar(&input.Name, "name", "", "Holder name")
	f.StringVar(&input.Email, "email", "", "Holder email")
	f.StringVar(&input.Phone, "phone", "", "Holder phone")
	f.StringVar(&input.EventName, "event-name", "", "Event display name")
	return cmd
}

type decodeOutput struct {
	Valid     bool             `json:"valid"`
	Strategy  string           `json:"strategy,omitempty"`
	Expired   bool             `json:"expired"`
	ExpiresAt time.Time        `json:"expires_at"`
	Payload   *qrcodec.Payload `json:"payload"`
}

func newQRDecodeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Verify a token and print its payload as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := opts.codec(cmd)
			if err != nil {
				return err
			}

			verification, err := codec.Verify(args[0])
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decodeOutput{
				Valid:     true,
				Strategy:  verification.Strategy,
				Expired:   verification.Payload.Expired(time.Now()),
				ExpiresAt: verification.Payload.ExpiresTime(),
				Payload:   &verification.Payload,
			})
		},
	}
}

func newQRCodeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "code <registration-id>",
		Short: "Print the manual verification code for a registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := opts.codec(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), codec.VerificationCode(args[0]))
			return nil
		},
	}
}

func newQRImageCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		size   int
	)

	cmd := &cobra.Command{
		Use:   "image <token>",
		Short: "Render a verified token as a PNG QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := opts.codec(cmd)
			if err != nil {
				return err
			}
			passes, err := services.NewPassService(codec, size)
			if err != nil {
				return err
			}

			png, err := passes.Image(args[0], size)
			if err != nil {
				return fmt.Errorf("render pass: %w", err)
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(png)
				return err
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(png))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout when empty or -)")
	cmd.Flags().IntVar(&size, "size", 320, "Image edge in pixels")
	return cmd
}
