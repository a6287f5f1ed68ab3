// Package twilio is a minimal client for the pieces of the Twilio API
// this service touches: outbound WhatsApp messages and inbound webhook
// signature validation.
package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com"

// Client sends messages through the Twilio REST API.
type Client struct {
	accountSID string
	authToken  string
	from       string // WhatsApp-enabled sender, e.g. "whatsapp:+14155238886"
	baseURL    string
	client     *http.Client
}

// NewClient creates a Twilio client.
func NewClient(accountSID, authToken, from string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint (tests).
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// SendMessage sends body to the given recipient and returns the message SID.
func (c *Client) SendMessage(ctx context.Context, to, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio: %s: %s", resp.Status, payload)
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", err
	}
	return out.SID, nil
}

// ValidateSignature checks an inbound webhook's X-Twilio-Signature header:
// Base64(HMAC-SHA1(authToken, url + form params sorted by key, key and
// value concatenated)).
func ValidateSignature(authToken, requestURL string, form url.Values, signature string) bool {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(requestURL)
	for _, k := range keys {
		for _, v := range form[k] {
			sb.WriteString(k)
			sb.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(sb.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
