// Package handler turns WhatsApp replies into RSVPs.
package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nihanthkethireddy/invite/internal/guests"
	"github.com/nihanthkethireddy/invite/internal/models"
	"github.com/nihanthkethireddy/invite/internal/whatsapp"
)

// Messenger sends outbound WhatsApp messages.
type Messenger interface {
	SendMessage(ctx context.Context, phone, message string) error
	SendInvitation(ctx context.Context, phone, name string) error
	Event() whatsapp.Event
}

// GuestService is the part of guests.Service the handler uses.
type GuestService interface {
	LookupByPhone(ctx context.Context, phone string) (*models.Guest, error)
	UpsertProfile(ctx context.Context, name, phone string) (*models.Guest, error)
	SaveRSVP(ctx context.Context, in guests.RSVPInput) (*models.Guest, error)
}

type RSVPHandler struct {
	ctx       context.Context
	messenger Messenger
	guests    GuestService
	log       zerolog.Logger
}

// NewRSVPHandler creates a new RSVP handler. Inbound messages are handled
// under ctx, so canceling it stops in-flight lookups and replies.
func NewRSVPHandler(ctx context.Context, messenger Messenger, svc GuestService, log zerolog.Logger) *RSVPHandler {
	return &RSVPHandler{
		ctx:       ctx,
		messenger: messenger,
		guests:    svc,
		log:       log.With().Str("component", "rsvp-handler").Logger(),
	}
}

// HandleMessage processes an inbound WhatsApp message.
func (h *RSVPHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil {
		return nil
	}
	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return nil
	}
	return h.HandleText(h.ctx, msg.Info.Sender.User, text)
}

// HandleText records an RSVP from sender when the text reads as one and the
// sender is a known guest. Anything else is ignored.
func (h *RSVPHandler) HandleText(ctx context.Context, sender, text string) error {
	guest, err := h.findGuest(ctx, sender)
	if err != nil {
		return err
	}
	if guest == nil {
		h.log.Debug().Str("sender", sender).Msg("Message from unknown number ignored")
		return nil
	}

	reply, ok := parseReply(text)
	if !ok {
		return nil
	}
	plusOnes := guest.PlusOnes
	if reply.hasCount {
		plusOnes = reply.count
	}

	saved, err := h.guests.SaveRSVP(ctx, guests.RSVPInput{
		Name:     guest.Name,
		Phone:    guest.Phone,
		RSVP:     string(reply.choice),
		PlusOnes: float64(plusOnes),
		Scope:    string(guest.Scope),
	})
	if err != nil {
		return fmt.Errorf("failed to update RSVP: %w", err)
	}
	h.log.Info().Str("id", saved.ID).Str("rsvp", string(saved.RSVP)).Int("plus_ones", saved.PlusOnes).Msg("RSVP received over WhatsApp")

	if err := h.messenger.SendMessage(ctx, saved.Phone, confirmation(saved, h.messenger.Event())); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	return nil
}

// findGuest tries the sender in international form first, then as sent.
func (h *RSVPHandler) findGuest(ctx context.Context, sender string) (*models.Guest, error) {
	number := whatsapp.Number(sender)
	if number == "" {
		return nil, nil
	}
	for _, candidate := range []string{"+" + number, number} {
		g, err := h.guests.LookupByPhone(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if g != nil {
			return g, nil
		}
	}
	return nil, nil
}

// SendInvitation records the guest's profile and sends them the invitation.
func (h *RSVPHandler) SendInvitation(ctx context.Context, phone, name string) (*models.Guest, error) {
	g, err := h.guests.UpsertProfile(ctx, name, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}
	if err := h.messenger.SendInvitation(ctx, g.Phone, g.Name); err != nil {
		return g, fmt.Errorf("failed to send invitation: %w", err)
	}
	return g, nil
}

func confirmation(g *models.Guest, ev whatsapp.Event) string {
	switch g.RSVP {
	case models.RSVPYes:
		party := "you"
		if g.PlusOnes > 0 {
			party = fmt.Sprintf("you and %d guest(s)", g.PlusOnes)
		}
		return fmt.Sprintf("🎉 Wonderful! We've confirmed %s for %s.\n\nSee you there! 💕", party, ev.Date)
	case models.RSVPMaybe:
		return "Thanks for letting us know. Reply YES or NO whenever you've decided."
	default:
		return "Thank you for letting us know. We're sorry you can't make it, you'll be missed! 💕"
	}
}

type reply struct {
	choice   models.RSVPChoice
	count    int
	hasCount bool
}

var (
	declinePhrases = []string{"not coming", "can't come", "cant come", "won't come", "wont come", "can't make it", "cant make it"}
	yesWords       = wordSet("yes", "yep", "yeah", "y", "accept", "accepting", "attending", "coming", "✅")
	noWords        = wordSet("no", "nope", "n", "decline", "declining", "❌")
	maybeWords     = wordSet("maybe", "perhaps", "unsure", "🤔")
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// parseReply reads "yes", "no" or "maybe" (and a few synonyms) plus an
// optional guest count, e.g. "YES 2".
func parseReply(text string) (reply, bool) {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	for _, phrase := range declinePhrases {
		if strings.Contains(text, phrase) {
			return reply{choice: models.RSVPNo}, true
		}
	}

	var r reply
	tokens := strings.FieldsFunc(text, func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c) && c != '\''
	})
	for _, tok := range tokens {
		switch {
		case r.choice == models.RSVPNone && yesWords[tok]:
			r.choice = models.RSVPYes
		case r.choice == models.RSVPNone && noWords[tok]:
			r.choice = models.RSVPNo
		case r.choice == models.RSVPNone && maybeWords[tok]:
			r.choice = models.RSVPMaybe
		case !r.hasCount:
			if n, err := strconv.Atoi(tok); err == nil {
				r.count = guests.ClampPlusOnes(float64(n))
				r.hasCount = true
			}
		}
	}
	if r.choice == models.RSVPNone {
		for _, emoji := range []struct {
			s string
			c models.RSVPChoice
		}{{"✅", models.RSVPYes}, {"❌", models.RSVPNo}, {"🤔", models.RSVPMaybe}} {
			if strings.Contains(text, emoji.s) {
				r.choice = emoji.c
				break
			}
		}
	}
	return r, r.choice != models.RSVPNone
}
