package paypay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client creates payment links through the PayPay Web Payment API
type Client interface {
	// CreatePaymentLink creates a code payment and returns the URL the
	// payer should open
	CreatePaymentLink(ctx context.Context, req CreatePaymentRequest) (*PaymentLink, error)
}

// CreatePaymentRequest describes a payment to collect
type CreatePaymentRequest struct {
	MerchantPaymentID string
	AmountYen         int64
	OrderDescription  string
	RedirectURL       string
}

// PaymentLink is the created payment and its payer-facing URL
type PaymentLink struct {
	CodeID            string    `json:"codeId"`
	URL               string    `json:"url"`
	MerchantPaymentID string    `json:"merchantPaymentId"`
	AmountYen         int64     `json:"amountYen"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

type client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	apiSecret  string
	merchantID string
}

// NewClient creates a PayPay API client
func NewClient(apiURL, apiKey, apiSecret, merchantID string, timeout time.Duration) Client {
	return &client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		merchantID: merchantID,
	}
}

type createCodeRequest struct {
	MerchantPaymentID string      `json:"merchantPaymentId"`
	Amount            moneyAmount `json:"amount"`
	CodeType          string      `json:"codeType"`
	OrderDescription  string      `json:"orderDescription,omitempty"`
	RedirectURL       string      `json:"redirectUrl,omitempty"`
	RedirectType      string      `json:"redirectType,omitempty"`
}

type moneyAmount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createCodeResponse struct {
	ResultInfo struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"resultInfo"`
	Data struct {
		CodeID    string `json:"codeId"`
		URL       string `json:"url"`
		ExpiryDate int64 `json:"expiryDate"`
	} `json:"data"`
}

func (c *client) CreatePaymentLink(ctx context.Context, req CreatePaymentRequest) (*PaymentLink, error) {
	if req.AmountYen <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %d", req.AmountYen)
	}
	if req.MerchantPaymentID == "" {
		req.MerchantPaymentID = uuid.New().String()
	}

	body := createCodeRequest{
		MerchantPaymentID: req.MerchantPaymentID,
		Amount:            moneyAmount{Amount: req.AmountYen, Currency: "JPY"},
		CodeType:          "ORDER_QR",
		OrderDescription:  req.OrderDescription,
		RedirectURL:       req.RedirectURL,
	}
	if req.RedirectURL != "" {
		body.RedirectType = "WEB_LINK"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	const path = "/v2/codes"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.authHeader(http.MethodPost, path, "application/json", payload))
	if c.merchantID != "" {
		httpReq.Header.Set("X-ASSUME-MERCHANT", c.merchantID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payment API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded createCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	if decoded.ResultInfo.Code != "SUCCESS" {
		return nil, fmt.Errorf("payment API rejected request: %s (%s)", decoded.ResultInfo.Code, decoded.ResultInfo.Message)
	}

	return &PaymentLink{
		CodeID:            decoded.Data.CodeID,
		URL:               decoded.Data.URL,
		MerchantPaymentID: req.MerchantPaymentID,
		AmountYen:         req.AmountYen,
		ExpiresAt:         time.Unix(decoded.Data.ExpiryDate, 0).UTC(),
	}, nil
}

// authHeader builds the HMAC-SHA256 auth header the Web Payment API
// expects. The MAC covers the request path, method, nonce, epoch,
// content type and a hash of the body.
func (c *client) authHeader(method, path, contentType string, body []byte) string {
	nonce := uuid.New().String()[:8]
	epoch := fmt.Sprintf("%d", time.Now().Unix())

	bodyDigest := "empty"
	if len(body) > 0 {
		h := md5.New()
		h.Write([]byte(contentType))
		h.Write(body)
		bodyDigest = base64.StdEncoding.EncodeToString(h.Sum(nil))
	}

	macInput := fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s", path, method, nonce, epoch, contentType, bodyDigest)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(macInput))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("hmac OPA-Auth:%s:%s:%s:%s:%s", c.apiKey, signature, nonce, epoch, bodyDigest)
}
