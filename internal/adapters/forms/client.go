// Package forms posts completed check-ins to the external form endpoint
// (a Google Forms formResponse URL).
package forms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

// Field identifiers are the receiving form's contract. Never change them.
const (
	fieldUserID       = "entry.111111"
	fieldUsername     = "entry.111112"
	fieldWaterML      = "entry.222222"
	fieldSugarML      = "entry.333333"
	fieldCaffeine     = "entry.444444"
	fieldFoodsG       = "entry.555555"
	fieldNotes        = "entry.666666"
	fieldAccountToken = "entry.777777"
)

type Client struct {
	url  string
	http *http.Client
}

func NewClient(formURL string) *Client {
	return &Client{
		url:  formURL,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Submit(ctx context.Context, sub *domain.Submission) error {
	form := url.Values{}
	form.Set(fieldUserID, string(sub.UserID))
	form.Set(fieldUsername, sub.Username)
	form.Set(fieldAccountToken, sub.AccountToken)
	form.Set(fieldWaterML, formatAmount(sub.WaterML))
	form.Set(fieldSugarML, formatAmount(sub.SugarML))
	form.Set(fieldCaffeine, sub.CaffeineRaw)
	form.Set(fieldFoodsG, formatAmount(sub.FoodsG))
	form.Set(fieldNotes, sub.Notes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", domain.ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %s", domain.ErrSubmissionFailed, resp.Status)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ domain.FormSubmitter = (*Client)(nil)
