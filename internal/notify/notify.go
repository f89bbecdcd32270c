// Package notify tells subscribers that a product is back in stock.
package notify

import (
	"context"
	"strings"

	"github.com/lukman83/matcha-stock/internal/models"
	"go.uber.org/zap"
)

type EmailMessage struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

type SMSMessage struct {
	From string
	To   string
	Body string
}

// EmailSender delivers one email and returns the provider's message id.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// SMSSender delivers one text message and returns the provider's message id.
type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) (string, error)
}

// Subscribers resolves the active recipients of a product or brand.
type Subscribers interface {
	ProductSubscribers(ctx context.Context, productID string) ([]models.Subscriber, error)
	BrandSubscribers(ctx context.Context, brandID string) ([]models.Subscriber, error)
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Channel    string `json:"channel"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	ProviderID string `json:"provider_id,omitempty"`
	Err        error  `json:"-"`
}

// Report tallies the outcomes of a dispatch run.
type Report struct {
	Sent     int       `json:"sent"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
}

func (r *Report) add(o Outcome) {
	if o.Err != nil {
		r.Failed++
	} else {
		r.Sent++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Options configures a Dispatcher. Email and SMS may be nil when the
// corresponding channel is not used.
type Options struct {
	Email     EmailSender
	SMS       SMSSender
	Tokens    *Tokens
	FromEmail string
	FromPhone string
	Deduper   Deduper
	Logger    *zap.SugaredLogger
}

// Dispatcher fans restocks out to subscribers, one message per recipient.
type Dispatcher struct {
	subs      Subscribers
	email     EmailSender
	sms       SMSSender
	tokens    *Tokens
	fromEmail string
	fromPhone string
	dedupe    Deduper
	logger    *zap.SugaredLogger
}

func NewDispatcher(subs Subscribers, opts Options) *Dispatcher {
	d := &Dispatcher{
		subs:      subs,
		email:     opts.Email,
		sms:       opts.SMS,
		tokens:    opts.Tokens,
		fromEmail: opts.FromEmail,
		fromPhone: opts.FromPhone,
		dedupe:    opts.Deduper,
		logger:    opts.Logger,
	}
	if d.dedupe == nil {
		d.dedupe = NoopDeduper{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop().Sugar()
	}
	return d
}

// ProductEmails emails every product subscriber about their restocked product.
func (d *Dispatcher) ProductEmails(ctx context.Context, restocks []models.Restock) Report {
	var rep Report
	for _, r := range restocks {
		p := r.Product
		subs, err := d.subs.ProductSubscribers(ctx, p.ID)
		if err != nil {
			d.logger.Errorw("load product subscribers", "product", p.Name, "error", err)
			continue
		}
		d.logger.Infow("product restocked", "product", p.Name, "brand", p.BrandName, "subscribers", len(subs))

		for _, sub := range subs {
			if ctx.Err() != nil {
				return rep
			}
			email := strings.TrimSpace(sub.Email)
			if email == "" {
				rep.Skipped++
				continue
			}
			key := DedupeKey("email", email, p.ID, r.Latest.ID)
			if !d.claim(ctx, key, "email", email, p.ID) {
				rep.Skipped++
				continue
			}
			subject, html, text, err := RenderProductEmail(p, d.tokens.URL(email, p.ID, KindProduct))
			if err != nil {
				rep.add(d.finish(ctx, key, Outcome{Channel: "email", Recipient: email, Err: err}))
				continue
			}
			id, err := d.email.SendEmail(ctx, EmailMessage{From: d.fromEmail, To: email, Subject: subject, HTML: html, Text: text})
			rep.add(d.finish(ctx, key, Outcome{Channel: "email", Recipient: email, Subject: subject, ProviderID: id, Err: err}))
		}
	}
	return rep
}

// ProductSMS texts every product subscriber with a phone number.
func (d *Dispatcher) ProductSMS(ctx context.Context, restocks []models.Restock) Report {
	var rep Report
	for _, r := range restocks {
		p := r.Product
		subs, err := d.subs.ProductSubscribers(ctx, p.ID)
		if err != nil {
			d.logger.Errorw("load product subscribers", "product", p.Name, "error", err)
			continue
		}

		for _, sub := range subs {
			if ctx.Err() != nil {
				return rep
			}
			phone := strings.TrimSpace(sub.Phone)
			if phone == "" {
				rep.Skipped++
				continue
			}
			key := DedupeKey("sms", phone, p.ID, r.Latest.ID)
			if !d.claim(ctx, key, "sms", phone, p.ID) {
				rep.Skipped++
				continue
			}
			body := SMSBody(p)
			id, err := d.sms.SendSMS(ctx, SMSMessage{From: d.fromPhone, To: phone, Body: body})
			rep.add(d.finish(ctx, key, Outcome{Channel: "sms", Recipient: phone, Subject: p.Name, ProviderID: id, Err: err}))
		}
	}
	return rep
}

// BrandEmails sends each brand subscriber one digest of the brand's restocked products.
func (d *Dispatcher) BrandEmails(ctx context.Context, brands []models.BrandRestock) Report {
	var rep Report
	for _, b := range brands {
		if len(b.Products) == 0 {
			continue
		}
		subs, err := d.subs.BrandSubscribers(ctx, b.BrandID)
		if err != nil {
			d.logger.Errorw("load brand subscribers", "brand", b.BrandName, "error", err)
			continue
		}
		d.logger.Infow("brand restocked", "brand", b.BrandName, "products", len(b.Products), "subscribers", len(subs))

		for _, sub := range subs {
			if ctx.Err() != nil {
				return rep
			}
			email := strings.TrimSpace(sub.Email)
			if email == "" {
				rep.Skipped++
				continue
			}
			key := DedupeKey("brand-email", email, b.BrandID, latestCheckID(b))
			if !d.claim(ctx, key, "brand-email", email, b.BrandID) {
				rep.Skipped++
				continue
			}
			subject, html, text, err := RenderBrandEmail(b, d.tokens.URL(email, b.BrandID, KindBrand))
			if err != nil {
				rep.add(d.finish(ctx, key, Outcome{Channel: "email", Recipient: email, Err: err}))
				continue
			}
			id, err := d.email.SendEmail(ctx, EmailMessage{From: d.fromEmail, To: email, Subject: subject, HTML: html, Text: text})
			rep.add(d.finish(ctx, key, Outcome{Channel: "email", Recipient: email, Subject: subject, ProviderID: id, Err: err}))
		}
	}
	return rep
}

// claim asks the deduper whether a message may be sent. A deduper error
// lets the message through.
func (d *Dispatcher) claim(ctx context.Context, key, channel, recipient, target string) bool {
	ok, err := d.dedupe.Claim(ctx, key)
	if err != nil {
		d.logger.Warnw("dedupe claim failed, sending anyway", "recipient", recipient, "error", err)
		return true
	}
	if !ok {
		d.logger.Infow("already notified", "channel", channel, "recipient", recipient, "target", target)
	}
	return ok
}

// finish logs the outcome and gives the dedupe key back when the message
// was not delivered, so a later run can retry it.
func (d *Dispatcher) finish(ctx context.Context, key string, o Outcome) Outcome {
	if o.Err != nil {
		if err := d.dedupe.Release(ctx, key); err != nil {
			d.logger.Warnw("dedupe release failed", "recipient", o.Recipient, "error", err)
		}
	}
	return d.logOutcome(o)
}

func (d *Dispatcher) logOutcome(o Outcome) Outcome {
	if o.Err != nil {
		d.logger.Errorw("notification failed", "channel", o.Channel, "recipient", o.Recipient, "subject", o.Subject, "error", o.Err)
	} else {
		d.logger.Infow("notification sent", "channel", o.Channel, "recipient", o.Recipient, "subject", o.Subject, "id", o.ProviderID)
	}
	return o
}

// latestCheckID is the newest check id among a brand's restocks, used to
// scope the dedupe key of a digest.
func latestCheckID(b models.BrandRestock) string {
	var id string
	for _, r := range b.Products {
		if r.Latest.ID > id {
			id = r.Latest.ID
		}
	}
	return id
}
