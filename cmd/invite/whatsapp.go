package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nihanthkethireddy/invite/internal/handler"
	"github.com/nihanthkethireddy/invite/internal/whatsapp"
)

func whatsappCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatsapp",
		Short: "WhatsApp invitations",
	}

	var name, phone string
	invite := &cobra.Command{
		Use:   "invite",
		Short: "Add a guest and send them the invitation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			wa, err := whatsapp.NewService(ctx, a.cfg.WhatsApp, a.log)
			if err != nil {
				return err
			}
			if err := wa.Connect(ctx); err != nil {
				return err
			}
			defer wa.Disconnect()

			g, err := handler.NewRSVPHandler(ctx, wa, a.guests, a.log).SendInvitation(ctx, phone, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invitation sent to %s (%s)\n", g.Name, g.Phone)
			return nil
		},
	}
	invite.Flags().StringVar(&name, "name", "", "Guest name")
	invite.Flags().StringVar(&phone, "phone", "", "Guest phone number with country code")
	_ = invite.MarkFlagRequired("name")
	_ = invite.MarkFlagRequired("phone")

	cmd.AddCommand(invite)
	return cmd
}
