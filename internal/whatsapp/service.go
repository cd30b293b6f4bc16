// Package whatsapp connects a linked WhatsApp device for sending invitations
// and receiving RSVP replies.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nihanthkethireddy/invite/internal/config"
	"github.com/nihanthkethireddy/invite/internal/guests"
)

// MessageHandler is called for every inbound message not sent by us.
type MessageHandler func(*events.Message) error

// Event describes the occasion named in invitations.
type Event struct {
	Date     string
	Location string
	Hosts    string
}

// EventFromConfig copies the event details out of the WhatsApp config.
func EventFromConfig(cfg config.WhatsAppConfig) Event {
	return Event{Date: cfg.EventDate, Location: cfg.Location, Hosts: cfg.Hosts}
}

type Service struct {
	client         *whatsmeow.Client
	event          Event
	log            zerolog.Logger
	out            io.Writer
	messageHandler MessageHandler
}

// NewService opens the device store under cfg.DataDir and prepares a client.
// It does not connect.
func NewService(ctx context.Context, cfg config.WhatsAppConfig, log zerolog.Logger) (*Service, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(cfg.DataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	s := &Service{
		client: whatsmeow.NewClient(deviceStore, nil),
		event:  EventFromConfig(cfg),
		log:    log.With().Str("component", "whatsapp").Logger(),
		out:    os.Stdout,
	}
	s.client.AddEventHandler(s.eventHandler)
	return s, nil
}

// Number converts a phone in any format to the bare digits WhatsApp expects.
func Number(phone string) string {
	return strings.TrimPrefix(guests.NormalizePhone(phone), "+")
}

// Connect links the device, printing a QR code on first use, and connects.
func (s *Service) Connect(ctx context.Context) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := waitForLogin(qrChan, s.printQR); err != nil {
		s.client.Disconnect()
		return err
	}
	return nil
}

// waitForLogin drains the QR channel and succeeds only when the device was
// linked. The channel also closes after a timeout or a pairing error.
func waitForLogin(qrChan <-chan whatsmeow.QRChannelItem, onCode func(code string)) error {
	last := ""
	for evt := range qrChan {
		last = evt.Event
		switch evt.Event {
		case whatsmeow.QRChannelEventCode:
			onCode(evt.Code)
		case whatsmeow.QRChannelSuccess.Event:
			return nil
		case whatsmeow.QRChannelEventError:
			if evt.Error == nil {
				return errors.New("QR login failed")
			}
			return fmt.Errorf("QR login failed: %w", evt.Error)
		}
	}
	if last == "" {
		return errors.New("QR login ended without any event")
	}
	return fmt.Errorf("QR login ended with %q", last)
}

func (s *Service) printQR(code string) {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(s.out, "QR code: %s\n", code)
		return
	}
	fmt.Fprintln(s.out, "\n"+q.ToSmallString(false))
	fmt.Fprintln(s.out, "Scan the QR code above in WhatsApp under Settings > Linked Devices > Link a Device.")
}

// Disconnect closes the connection
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// FormatInvitation renders the invitation text for one guest.
func FormatInvitation(name string, ev Event) string {
	return fmt.Sprintf(
		"🎉 *You're invited*\n\n"+
			"Dear %s,\n\n"+
			"%s would love to celebrate with you.\n\n"+
			"📅 Date: %s\n"+
			"📍 Location: %s\n\n"+
			"Reply with:\n✅ *YES* to accept (add a number for extra guests, e.g. YES 2)\n"+
			"🤔 *MAYBE* if you're not sure yet\n❌ *NO* to decline",
		name, ev.Hosts, ev.Date, ev.Location,
	)
}

// Event returns the configured event details.
func (s *Service) Event() Event { return s.event }

// SendInvitation sends the invitation text to phone.
func (s *Service) SendInvitation(ctx context.Context, phone, name string) error {
	return s.SendMessage(ctx, phone, FormatInvitation(name, s.event))
}

// SendMessage sends a plain text message after checking the number is
// registered on WhatsApp.
func (s *Service) SendMessage(ctx context.Context, phone, message string) error {
	jid, err := s.resolveJID(ctx, phone)
	if err != nil {
		return err
	}

	s.log.Debug().Str("jid", jid.String()).Msg("Sending message")
	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &message,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", jid.String(), err)
	}
	s.log.Info().Str("jid", jid.String()).Str("message_id", string(sent.ID)).Msg("Message sent")
	return nil
}

func (s *Service) resolveJID(ctx context.Context, phone string) (types.JID, error) {
	number := Number(phone)
	if number == "" {
		return types.JID{}, fmt.Errorf("invalid phone number %q", phone)
	}
	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return types.JID{}, fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, fmt.Errorf("number %s is not registered on WhatsApp", number)
	}
	return resp[0].JID, nil
}

func (s *Service) eventHandler(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Warn().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Warn().Msg("Logged out from WhatsApp")
	}
}

func (s *Service) handleMessage(msg *events.Message) {
	if msg.Info.IsFromMe {
		return
	}
	if s.messageHandler == nil {
		s.log.Debug().Str("sender", msg.Info.Sender.String()).Msg("Received message")
		return
	}
	if err := s.messageHandler(msg); err != nil {
		s.log.Error().Err(err).Str("sender", msg.Info.Sender.String()).Msg("Error handling message")
	}
}

// SetMessageHandler installs the inbound message callback.
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}
