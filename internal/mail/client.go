package mail

import (
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/rahulm/onebox/internal/config"
)

// RawMessage is an unparsed message fetched from the server.
type RawMessage struct {
	SeqNum       uint32
	InternalDate time.Time
	Body         []byte
}

// Client wraps a single IMAP connection for one account.
type Client struct {
	cfg    config.AccountConfig
	client *imapclient.Client
	logger *logrus.Logger
}

// NewClient creates a client for the account. It does not connect.
func NewClient(cfg config.AccountConfig, logger *logrus.Logger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

// Dial establishes the connection and logs in.
func (c *Client) Dial() error {
	var cl *imapclient.Client
	var err error

	if c.cfg.TLS {
		cl, err = imapclient.DialTLS(c.cfg.Addr(), &tls.Config{
			ServerName: c.cfg.Host,
			MinVersion: tls.VersionTLS12,
		})
	} else {
		cl, err = imapclient.Dial(c.cfg.Addr())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := cl.Login(c.cfg.Username, c.cfg.Password); err != nil {
		cl.Logout() //nolint:errcheck
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	c.client = cl
	c.logger.WithField("account", c.cfg.ID).Info("Connected to IMAP server")
	return nil
}

// SelectInbox opens the primary mailbox and returns its status.
func (c *Client) SelectInbox() (*imap.MailboxStatus, error) {
	mbox, err := c.client.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}
	return mbox, nil
}

// SearchSince returns the sequence numbers of messages received at or after
// the given time.
func (c *Client) SearchSince(since time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	seqs, err := c.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}
	return seqs, nil
}

// Fetch retrieves the full source of the messages in seqSet.
func (c *Client) Fetch(seqSet *imap.SeqSet) ([]RawMessage, error) {
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.client.Fetch(seqSet, items, messages)
	}()

	var raws []RawMessage
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			c.logger.WithField("seq", msg.SeqNum).Warn("Fetched message without body section")
			continue
		}
		body, err := io.ReadAll(literal)
		if err != nil {
			c.logger.WithError(err).WithField("seq", msg.SeqNum).Warn("Failed to read message body")
			continue
		}
		raws = append(raws, RawMessage{
			SeqNum:       msg.SeqNum,
			InternalDate: msg.InternalDate,
			Body:         body,
		})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return raws, nil
}

// Updates registers and returns the channel receiving unilateral server
// updates. Must be called before Idle.
func (c *Client) Updates(buffer int) <-chan imapclient.Update {
	updates := make(chan imapclient.Update, buffer)
	c.client.Updates = updates
	return updates
}

// Idle blocks in an IDLE command until stop is closed, an update arrives,
// or the connection fails.
func (c *Client) Idle(stop <-chan struct{}) error {
	return c.client.Idle(stop, nil)
}

// Close logs out.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Logout()
}
