package mail

import (
	"bytes"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/rahulm/onebox/pkg/types"
)

// Normalize parses a raw RFC 822 payload into a canonical EmailDocument.
// It is pure: no I/O, no clock. The store-assigned id, category, and reply
// fields are left empty; the Date is zero when the header is missing or
// unparsable, in which case the caller substitutes the transport date.
func Normalize(raw []byte, accountID, folder string) (types.EmailDocument, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return types.EmailDocument{}, fmt.Errorf("failed to parse message: %w", err)
	}

	doc := types.EmailDocument{
		MessageID: strings.TrimSpace(env.GetHeader("Message-Id")),
		Subject:   env.GetHeader("Subject"),
		From:      addressDisplay(env, "From"),
		To:        addressDisplay(env, "To"),
		Text:      env.Text,
		HTML:      env.HTML,
		Folder:    strings.ToLower(folder),
		AccountID: strings.ToLower(accountID),
	}

	if dateHeader := env.GetHeader("Date"); dateHeader != "" {
		if date, err := netmail.ParseDate(dateHeader); err == nil {
			doc.Date = date
		}
	}

	return doc, nil
}

// addressDisplay flattens an address header into a display string, joining
// multiple addresses with ", ". Falls back to the raw header value when the
// header does not parse as an address list.
func addressDisplay(env *enmime.Envelope, header string) string {
	addrs, err := env.AddressList(header)
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(env.GetHeader(header))
	}

	parts := make([]string, len(addrs))
	for i, addr := range addrs {
		if addr.Name != "" {
			parts[i] = fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
		} else {
			parts[i] = addr.Address
		}
	}
	return strings.Join(parts, ", ")
}
