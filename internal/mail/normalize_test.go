package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawTextMessage() []byte {
	return []byte("Message-Id: <m1@example.com>\r\n" +
		"From: Alice <alice@example.com>\r\n" +
		"To: Bob <bob@example.com>, carol@example.com\r\n" +
		"Subject: Demo request\r\n" +
		"Date: Tue, 12 Aug 2025 10:00:00 +0000\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hi, I'd like a demo of your product.\r\n")
}

func TestNormalizeTextMessage(t *testing.T) {
	doc, err := Normalize(rawTextMessage(), "Sales@Example.com", "INBOX")
	require.NoError(t, err)

	assert.Equal(t, "<m1@example.com>", doc.MessageID)
	assert.Equal(t, "Demo request", doc.Subject)
	assert.Equal(t, "Alice <alice@example.com>", doc.From)
	assert.Equal(t, "Bob <bob@example.com>, carol@example.com", doc.To)
	assert.Contains(t, doc.Text, "demo of your product")
	assert.Equal(t, "inbox", doc.Folder)
	assert.Equal(t, "sales@example.com", doc.AccountID)

	want := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	assert.True(t, doc.Date.Equal(want), "got date %v", doc.Date)
}

func TestNormalizeHTMLMessage(t *testing.T) {
	raw := []byte("Message-Id: <m2@example.com>\r\n" +
		"From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Newsletter\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>Hello there</p></body></html>\r\n")

	doc, err := Normalize(raw, "acct", "INBOX")
	require.NoError(t, err)

	assert.NotEmpty(t, doc.HTML)
	assert.True(t, doc.Date.IsZero(), "missing Date header should leave a zero date")
}

func TestNormalizeMissingBodiesDefaultToEmpty(t *testing.T) {
	raw := []byte("Message-Id: <m3@example.com>\r\n" +
		"From: alice@example.com\r\n" +
		"Subject: Empty\r\n" +
		"\r\n")

	doc, err := Normalize(raw, "acct", "INBOX")
	require.NoError(t, err)

	assert.Equal(t, "", doc.HTML)
	assert.Equal(t, "", doc.To)
}

func TestNormalizeUnparsableAddressFallsBackToRawHeader(t *testing.T) {
	raw := []byte("Message-Id: <m4@example.com>\r\n" +
		"From: not an address\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Odd sender\r\n" +
		"\r\n" +
		"body\r\n")

	doc, err := Normalize(raw, "acct", "INBOX")
	require.NoError(t, err)

	assert.Equal(t, "not an address", doc.From)
}
